package core

import (
	"context"
	"errors"
	"iter"
	"sync"

	"gwi.com/prompt-relay/internal/common"
	"gwi.com/prompt-relay/internal/llm"
	"gwi.com/prompt-relay/internal/store"
)

type fakeStreamer struct {
	name   string
	chunks []string
	err    error // yielded after chunks
	got    []llm.Request
}

func (f *fakeStreamer) Name() string { return f.name }

func (f *fakeStreamer) Stream(_ context.Context, req llm.Request) iter.Seq2[string, error] {
	f.got = append(f.got, req)
	return func(yield func(string, error) bool) {
		for _, c := range f.chunks {
			if !yield(c, nil) {
				return
			}
		}
		if f.err != nil {
			yield("", f.err)
		}
	}
}

type fakeCompleter struct {
	name  string
	reply string
	got   []llm.Request
}

func (f *fakeCompleter) Name() string { return f.name }

func (f *fakeCompleter) Complete(_ context.Context, req llm.Request) string {
	f.got = append(f.got, req)
	return f.reply
}

type fakeHistory struct {
	records []store.HistoryRecord
	err     error
}

func (f *fakeHistory) AppendHistory(_ context.Context, rec *store.HistoryRecord) error {
	if f.err != nil {
		return f.err
	}
	rec.ID = int64(len(f.records) + 1)
	f.records = append(f.records, *rec)
	return nil
}

func (f *fakeHistory) ListHistory(_ context.Context, ownerID *int64) ([]store.HistoryRecord, error) {
	var out []store.HistoryRecord
	for _, r := range f.records {
		if ownerID == nil || (r.UserID != nil && *r.UserID == *ownerID) {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeUsers struct {
	mu    sync.Mutex
	users []store.User
}

func (f *fakeUsers) CreateUser(_ context.Context, username, email, hash string) (*store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username || u.Email == email {
			return nil, errors.New("UNIQUE constraint failed")
		}
	}
	u := store.User{ID: int64(len(f.users) + 1), Username: username, Email: email, PasswordHash: hash}
	f.users = append(f.users, u)
	return &u, nil
}

func (f *fakeUsers) GetUserByUsername(_ context.Context, username string) (*store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeUsers) UserExists(_ context.Context, username, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username || u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

type sentCode struct {
	to   string
	code int
}

type fakeMailer struct {
	sent []sentCode
	err  error
}

func (f *fakeMailer) SendOTP(_ context.Context, to string, code int) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentCode{to: to, code: code})
	return nil
}
