package core

import (
	"encoding/json"
	"iter"
	"sync/atomic"
)

// Event is one unit of a relayed turn. The set is closed: ProviderText,
// Fragment, End and Error. A stream carries at most one of End or Error and
// it is always the last event.
type Event interface {
	json.Marshaler
	isEvent()
}

// ProviderText carries the full reply of a batch provider.
type ProviderText struct {
	Provider string
	Text     string
}

// Fragment carries one incremental piece of the primary provider's reply.
type Fragment struct {
	Provider string
	Text     string
}

type End struct{}

type Error struct {
	Message string
}

func (ProviderText) isEvent() {}
func (Fragment) isEvent()     {}
func (End) isEvent()          {}
func (Error) isEvent()        {}

func (e ProviderText) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{e.Provider: e.Text})
}

func (e Fragment) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{e.Provider + "_chunk": e.Text})
}

func (End) MarshalJSON() ([]byte, error) {
	return []byte(`{"event":"end"}`), nil
}

func (e Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"error": e.Message})
}

// EventStream is a lazy, single-consumption sequence of events. Nothing
// happens until All is ranged over; a second range yields nothing.
type EventStream struct {
	seq  iter.Seq[Event]
	used atomic.Bool
}

func newEventStream(seq iter.Seq[Event]) *EventStream {
	return &EventStream{seq: seq}
}

func (s *EventStream) All() iter.Seq[Event] {
	return func(yield func(Event) bool) {
		if !s.used.CompareAndSwap(false, true) {
			return
		}
		s.seq(yield)
	}
}

// Collect drains the stream into a slice.
func (s *EventStream) Collect() []Event {
	var events []Event
	for e := range s.All() {
		events = append(events, e)
	}
	return events
}
