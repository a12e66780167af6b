package models

import (
	"sync"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"github.com/google/uuid"
)

// pendingCheckout is a validated cart the device could not register, waiting for the cashier.
type pendingCheckout struct {
	invoice   *Invoice
	input     NewCheckout
	expiresAt time.Time
}

type pendingStore struct {
	mu    sync.Mutex
	items map[string]*pendingCheckout
	now   func() time.Time
}

var pendingCheckouts = &pendingStore{items: make(map[string]*pendingCheckout), now: time.Now}

func (s *pendingStore) put(inv *Invoice, input NewCheckout) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	id := uuid.NewString()
	s.items[id] = &pendingCheckout{invoice: inv, input: input, expiresAt: s.now().Add(config.PendingCheckoutTTL())}
	return id
}

// take removes and returns the entry; expired entries are treated as missing.
func (s *pendingStore) take(id string) (*pendingCheckout, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	p, ok := s.items[id]
	if ok {
		delete(s.items, id)
	}
	return p, ok
}

// restore puts an entry back after a failed confirmation so the cashier can retry.
func (s *pendingStore) restore(id string, p *pendingCheckout) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[id] = p
}

func (s *pendingStore) sweep() {
	now := s.now()
	for id, p := range s.items {
		if now.After(p.expiresAt) {
			delete(s.items, id)
		}
	}
}

func (s *pendingStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
