package auth

import (
	lru "github.com/hashicorp/golang-lru"
)

// PendingRegistration is a submitted registration waiting for its code.
// The password stays in plaintext until verification succeeds.
type PendingRegistration struct {
	Username string
	Email    string
	Password string
	Code     int
}

// PendingStore keeps pending registrations in process memory, keyed by
// session id. Entries have no expiry; the oldest ones are evicted once the
// store is full and everything is lost on restart.
type PendingStore struct {
	cache *lru.Cache
}

func NewPendingStore(size int) (*PendingStore, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &PendingStore{cache: cache}, nil
}

// Put replaces any registration already pending for sessionID.
func (p *PendingStore) Put(sessionID string, reg PendingRegistration) {
	p.cache.Add(sessionID, reg)
}

func (p *PendingStore) Get(sessionID string) (PendingRegistration, bool) {
	v, ok := p.cache.Get(sessionID)
	if !ok {
		return PendingRegistration{}, false
	}
	return v.(PendingRegistration), true
}

func (p *PendingStore) Delete(sessionID string) {
	p.cache.Remove(sessionID)
}
