// Package llm wraps the hosted text-generation APIs. Streaming adapters hand
// back fragments lazily; batch adapters return the whole reply and never fail
// past their boundary: problems are logged and turned into readable text.
package llm

import (
	"context"
	"iter"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is one prompt plus the turns that preceded it. An empty Model
// selects the adapter's default.
type Request struct {
	Prompt  string
	History []Message
	Model   string
}

// Streamer produces a finite, single-pass sequence of text fragments. A
// failure ends the sequence with a non-nil error element.
type Streamer interface {
	Name() string
	Stream(ctx context.Context, req Request) iter.Seq2[string, error]
}

// Completer performs one blocking call and returns the full reply or a
// human-readable error text.
type Completer interface {
	Name() string
	Complete(ctx context.Context, req Request) string
}

// Unavailable stands in for a streaming provider whose client could not be
// built. Every stream fails with the construction error.
type Unavailable struct {
	name string
	err  error
}

func NewUnavailable(name string, err error) *Unavailable {
	return &Unavailable{name: name, err: err}
}

func (u *Unavailable) Name() string { return u.name }

func (u *Unavailable) Stream(context.Context, Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		yield("", u.err)
	}
}
