package models

import (
	"testing"
	"time"
)

func TestPendingStoreTakeOnce(t *testing.T) {
	store := &pendingStore{items: make(map[string]*pendingCheckout), now: time.Now}
	id := store.put(&Invoice{InvoiceNumber: "x"}, NewCheckout{})
	p, ok := store.take(id)
	if !ok || p.invoice.InvoiceNumber != "x" {
		t.Fatalf("take: got %v %v", p, ok)
	}
	if _, ok := store.take(id); ok {
		t.Fatalf("entry taken twice")
	}
	store.restore(id, p)
	if store.size() != 1 {
		t.Fatalf("restore: size %d", store.size())
	}
}

func TestPendingStoreExpires(t *testing.T) {
	t.Setenv("PENDING_CHECKOUT_TTL_MINUTES", "5")
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &pendingStore{items: make(map[string]*pendingCheckout), now: func() time.Time { return now }}

	first := store.put(&Invoice{}, NewCheckout{})
	now = now.Add(4 * time.Minute)
	second := store.put(&Invoice{}, NewCheckout{})
	now = now.Add(2 * time.Minute)

	if _, ok := store.take(first); ok {
		t.Fatalf("expired entry was returned")
	}
	if _, ok := store.take(second); !ok {
		t.Fatalf("live entry was swept")
	}
	if store.size() != 0 {
		t.Fatalf("size: got %d", store.size())
	}
}
