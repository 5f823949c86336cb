package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/quillsocial/quill/internal/domain"
)

// memStore is an in-memory Store with the same claim semantics as the
// database-backed one: oldest unclaimed eligible item first.
type memStore struct {
	items  []domain.QueueItem
	nextID int64
}

func newMemStore() *memStore {
	return &memStore{nextID: 1}
}

func (s *memStore) Enqueue(ctx context.Context, frame []byte, transport string) (int64, error) {
	id := s.nextID
	s.nextID++
	s.items = append(s.items, domain.QueueItem{
		ID:        id,
		Frame:     frame,
		Transport: transport,
		Created:   time.Now(),
	})
	return id, nil
}

func eligible(item domain.QueueItem, transports, ignored []string) bool {
	if item.IsClaimed() {
		return false
	}
	for _, t := range ignored {
		if item.Transport == t {
			return false
		}
	}
	if len(transports) == 0 {
		return true
	}
	for _, t := range transports {
		if item.Transport == t {
			return true
		}
	}
	return false
}

func (s *memStore) ClaimNext(ctx context.Context, transports, ignored []string) (domain.QueueItem, error) {
	for i := range s.items {
		if eligible(s.items[i], transports, ignored) {
			now := time.Now()
			s.items[i].Claimed = &now
			return s.items[i], nil
		}
	}
	return domain.QueueItem{}, domain.ErrNoWork
}

func (s *memStore) Release(ctx context.Context, id int64) error {
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].Claimed = nil
			return nil
		}
	}
	return domain.NotFoundError{Resource: "queue item"}
}

func (s *memStore) Delete(ctx context.Context, id int64) (bool, error) {
	for i := range s.items {
		if s.items[i].ID == id {
			wasClaimed := s.items[i].IsClaimed()
			s.items = append(s.items[:i], s.items[i+1:]...)
			return wasClaimed, nil
		}
	}
	return false, nil
}

func (s *memStore) ReleaseStale(ctx context.Context, lease time.Duration) (int64, error) {
	cutoff := time.Now().Add(-lease)
	var released int64
	for i := range s.items {
		if s.items[i].Claimed != nil && s.items[i].Claimed.Before(cutoff) {
			s.items[i].Claimed = nil
			released++
		}
	}
	return released, nil
}

func (s *memStore) pending() int {
	n := 0
	for _, item := range s.items {
		if !item.IsClaimed() {
			n++
		}
	}
	return n
}

func enqueuePayload(t *testing.T, store *memStore, transport string, payload any) int64 {
	t.Helper()
	frame, err := EncodeFrame(payload)
	if err != nil {
		t.Fatalf("encode frame: %v", err)
	}
	id, err := store.Enqueue(context.Background(), frame, transport)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	return id
}

func TestRegistryTransports(t *testing.T) {
	registry := NewRegistry()
	registry.Register("mail", HandlerFunc(func(ctx context.Context, body []byte) error { return nil }))
	registry.Register("signal", HandlerFunc(func(ctx context.Context, body []byte) error { return nil }))

	transports := registry.Transports()
	if len(transports) != 2 {
		t.Fatalf("expected two transports, got %v", transports)
	}
	got := map[string]bool{}
	for _, name := range transports {
		got[name] = true
	}
	if !got["mail"] || !got["signal"] {
		t.Fatalf("unexpected transports: %v", transports)
	}
}

func TestPollOnceSuccessDeletesItem(t *testing.T) {
	store := newMemStore()
	enqueuePayload(t, store, "mail", map[string]string{"to": "someone"})

	var handled [][]byte
	registry := NewRegistry()
	registry.Register("mail", HandlerFunc(func(ctx context.Context, body []byte) error {
		handled = append(handled, body)
		return nil
	}))

	c := NewConsumer(store, registry, ConsumerConfig{}, nil)

	worked, err := c.PollOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !worked {
		t.Fatalf("expected a claimed item")
	}
	if len(handled) != 1 {
		t.Fatalf("expected one dispatch, got %d", len(handled))
	}
	if len(store.items) != 0 {
		t.Fatalf("processed item must be deleted, %d remain", len(store.items))
	}
}

func TestPollOnceEmptyQueueReportsNoWork(t *testing.T) {
	c := NewConsumer(newMemStore(), NewRegistry(), ConsumerConfig{}, nil)

	worked, err := c.PollOnce(context.Background())
	if err != nil {
		t.Fatalf("empty poll must not error: %v", err)
	}
	if worked {
		t.Fatalf("empty poll must report no work")
	}
}

func TestPollOnceFailureReleasesClaim(t *testing.T) {
	store := newMemStore()
	enqueuePayload(t, store, "mail", "payload")

	registry := NewRegistry()
	registry.Register("mail", HandlerFunc(func(ctx context.Context, body []byte) error {
		return fmt.Errorf("smtp unavailable")
	}))

	c := NewConsumer(store, registry, ConsumerConfig{}, nil)

	worked, err := c.PollOnce(context.Background())
	if err != nil {
		t.Fatalf("handler failure must not surface: %v", err)
	}
	if !worked {
		t.Fatalf("expected a claimed item")
	}
	if store.pending() != 1 {
		t.Fatalf("failed item must return to pending, pending = %d", store.pending())
	}

	// the released item is immediately claimable again
	if _, err := store.ClaimNext(context.Background(), nil, nil); err != nil {
		t.Fatalf("released item must be reclaimable: %v", err)
	}
}

func TestPollOncePanicReleasesClaim(t *testing.T) {
	store := newMemStore()
	enqueuePayload(t, store, "mail", "payload")

	registry := NewRegistry()
	registry.Register("mail", HandlerFunc(func(ctx context.Context, body []byte) error {
		panic("handler bug")
	}))

	c := NewConsumer(store, registry, ConsumerConfig{}, nil)

	worked, err := c.PollOnce(context.Background())
	if err != nil {
		t.Fatalf("handler panic must not surface: %v", err)
	}
	if !worked {
		t.Fatalf("expected a claimed item")
	}
	if store.pending() != 1 {
		t.Fatalf("item must survive a handler panic, pending = %d", store.pending())
	}
}

func TestPollOnceDiscardsPoisonFrame(t *testing.T) {
	store := newMemStore()
	if _, err := store.Enqueue(context.Background(), []byte("not json"), "mail"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	registry := NewRegistry()
	registry.Register("mail", HandlerFunc(func(ctx context.Context, body []byte) error {
		t.Fatalf("poison frame must not reach the handler")
		return nil
	}))

	c := NewConsumer(store, registry, ConsumerConfig{}, nil)

	worked, err := c.PollOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !worked {
		t.Fatalf("expected a claimed item")
	}
	if len(store.items) != 0 {
		t.Fatalf("poison frame must be discarded, %d remain", len(store.items))
	}
}

func TestPollOnceDiscardsUnroutableByDefault(t *testing.T) {
	store := newMemStore()
	enqueuePayload(t, store, "xmpp", "payload")

	c := NewConsumer(store, NewRegistry(), ConsumerConfig{}, nil)

	worked, err := c.PollOnce(context.Background())
	if err != nil {
		t.Fatalf("missing handler must not surface an error: %v", err)
	}
	if !worked {
		t.Fatalf("expected a claimed item")
	}
	if len(store.items) != 0 {
		t.Fatalf("unroutable item must be discarded, %d remain", len(store.items))
	}
}

func TestPollOnceKeepsUnroutableWhenConfigured(t *testing.T) {
	store := newMemStore()
	enqueuePayload(t, store, "xmpp", "payload")

	c := NewConsumer(store, NewRegistry(), ConsumerConfig{KeepUnroutable: true}, nil)

	worked, err := c.PollOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !worked {
		t.Fatalf("expected a claimed item")
	}
	if store.pending() != 1 {
		t.Fatalf("opportunistic consumer must keep unroutable items, pending = %d", store.pending())
	}
}

func TestPollOnceHonorsTransportSelection(t *testing.T) {
	store := newMemStore()
	enqueuePayload(t, store, "xmpp", "skip me")
	enqueuePayload(t, store, "mail", "take me")

	var handled int
	registry := NewRegistry()
	registry.Register("mail", HandlerFunc(func(ctx context.Context, body []byte) error {
		handled++
		return nil
	}))

	c := NewConsumer(store, registry, ConsumerConfig{Transports: []string{"mail"}}, nil)

	worked, err := c.PollOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !worked || handled != 1 {
		t.Fatalf("expected the mail item to be handled, worked=%v handled=%d", worked, handled)
	}
	if store.pending() != 1 {
		t.Fatalf("the xmpp item must stay pending, pending = %d", store.pending())
	}
}

func TestPollOnceHonorsIgnoreList(t *testing.T) {
	store := newMemStore()
	enqueuePayload(t, store, "xmpp", "skip me")

	c := NewConsumer(store, NewRegistry(), ConsumerConfig{Ignore: []string{"xmpp"}}, nil)

	worked, err := c.PollOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if worked {
		t.Fatalf("ignored transport must not be claimed")
	}
}

func TestReleaseStaleReturnsExpiredClaims(t *testing.T) {
	store := newMemStore()
	enqueuePayload(t, store, "mail", "payload")

	if _, err := store.ClaimNext(context.Background(), nil, nil); err != nil {
		t.Fatalf("claim: %v", err)
	}
	// age the claim past the lease
	stale := time.Now().Add(-time.Hour)
	store.items[0].Claimed = &stale

	released, err := store.ReleaseStale(context.Background(), 20*time.Minute)
	if err != nil {
		t.Fatalf("release stale: %v", err)
	}
	if released != 1 {
		t.Fatalf("expected one stale claim released, got %d", released)
	}
	if store.pending() != 1 {
		t.Fatalf("stale item must be pending again, pending = %d", store.pending())
	}
}

func TestEnqueuePollDeleteRoundTrip(t *testing.T) {
	store := newMemStore()

	type mailJob struct {
		To string `json:"to"`
	}
	enqueuePayload(t, store, "mail", mailJob{To: "operator@example.net"})

	var got mailJob
	registry := NewRegistry()
	registry.Register("mail", HandlerFunc(func(ctx context.Context, body []byte) error {
		return json.Unmarshal(body, &got)
	}))

	c := NewConsumer(store, registry, ConsumerConfig{}, nil)

	if _, err := c.PollOnce(context.Background()); err != nil {
		t.Fatalf("poll: %v", err)
	}
	if got.To != "operator@example.net" {
		t.Fatalf("payload did not round-trip, got %+v", got)
	}
	if len(store.items) != 0 {
		t.Fatalf("expected an empty queue after the round trip")
	}
}
