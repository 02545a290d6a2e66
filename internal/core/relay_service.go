package core

import (
	"context"
	"strings"

	"gwi.com/prompt-relay/internal/llm"
	"gwi.com/prompt-relay/internal/logging"
	"gwi.com/prompt-relay/internal/store"
)

type HistoryStore interface {
	AppendHistory(ctx context.Context, rec *store.HistoryRecord) error
	ListHistory(ctx context.Context, ownerID *int64) ([]store.HistoryRecord, error)
}

// Turn is one validated prompt submission.
type Turn struct {
	Prompt  string
	History []llm.Message
	// OwnerID is nil when identity is disabled.
	OwnerID *int64
	// Models overrides the model per provider name.
	Models map[string]string
}

// RelayService drives the providers for a turn and persists the result.
type RelayService struct {
	history     HistoryStore
	primary     llm.Streamer
	secondaries []llm.Completer
	logger      logging.Logger
}

func NewRelayService(history HistoryStore, primary llm.Streamer, secondaries []llm.Completer, logger logging.Logger) *RelayService {
	return &RelayService{
		history:     history,
		primary:     primary,
		secondaries: secondaries,
		logger:      logger,
	}
}

// Stream returns the events of one turn. Batch providers are called first, in
// order, and each yields one ProviderText. The primary provider's fragments
// follow as they arrive. The record is written before End is yielded; a
// generation or write failure yields a single Error instead and nothing more.
// When the consumer stops early the turn is abandoned and not persisted.
func (s *RelayService) Stream(ctx context.Context, turn Turn) *EventStream {
	return newEventStream(func(yield func(Event) bool) {
		rec := &store.HistoryRecord{Prompt: turn.Prompt, UserID: turn.OwnerID}

		for _, c := range s.secondaries {
			text := c.Complete(ctx, turn.request(c.Name()))
			if !rec.SetOutput(c.Name(), text) {
				s.logger.Warn(ctx, "provider has no history column", "provider", c.Name())
			}
			if !yield(ProviderText{Provider: c.Name(), Text: text}) {
				return
			}
		}

		primary := s.primary.Name()
		var full strings.Builder
		for chunk, err := range s.primary.Stream(ctx, turn.request(primary)) {
			if err != nil {
				s.logger.Error(ctx, "streaming failed", "provider", primary, "error", err)
				yield(Error{Message: err.Error()})
				return
			}
			if chunk == "" {
				continue
			}
			full.WriteString(chunk)
			if !yield(Fragment{Provider: primary, Text: chunk}) {
				s.logger.Info(ctx, "client went away, turn dropped", "provider", primary)
				return
			}
		}
		rec.SetOutput(primary, full.String())

		if err := s.history.AppendHistory(ctx, rec); err != nil {
			s.logger.Error(ctx, "failed to save history record", "error", err)
			yield(Error{Message: err.Error()})
			return
		}
		s.logger.Debug(ctx, "turn saved", "history_id", rec.ID)

		yield(End{})
	})
}

// History lists the turns visible to ownerID, oldest first. A nil ownerID
// lists every turn.
func (s *RelayService) History(ctx context.Context, ownerID *int64) ([]store.HistoryRecord, error) {
	return s.history.ListHistory(ctx, ownerID)
}

func (t Turn) request(provider string) llm.Request {
	return llm.Request{
		Prompt:  t.Prompt,
		History: t.History,
		Model:   t.Models[provider],
	}
}
