// Package queue implements the durable background work queue: a database
// table of pending frames and a polling consumer that claims, decodes and
// dispatches them to per-transport handlers.
package queue

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/quillsocial/quill/internal/domain"
)

// Store is the durable claim-capable storage the consumer runs against.
type Store interface {
	Enqueue(ctx context.Context, frame []byte, transport string) (int64, error)
	ClaimNext(ctx context.Context, transports, ignored []string) (domain.QueueItem, error)
	Release(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) (bool, error)
	ReleaseStale(ctx context.Context, lease time.Duration) (int64, error)
}

// Handler processes one decoded frame body. A non-nil error releases the
// claim for retry; panics are caught by the consumer and count as failure.
type Handler interface {
	Handle(ctx context.Context, body []byte) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, body []byte) error

func (f HandlerFunc) Handle(ctx context.Context, body []byte) error {
	return f(ctx, body)
}

// Registry maps transport names to handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

func (r *Registry) Register(transport string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[transport] = h
}

func (r *Registry) Lookup(transport string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[transport]
	return h, ok
}

// Transports returns the registered transport names.
func (r *Registry) Transports() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		out = append(out, name)
	}
	return out
}

// envelope is the on-wire frame format. A frame that does not decode to a
// versioned envelope is a poison message and gets discarded.
type envelope struct {
	Version int             `json:"version"`
	Body    json.RawMessage `json:"body"`
}

const frameVersion = 1

// EncodeFrame wraps a payload into a queue frame.
func EncodeFrame(body any) ([]byte, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "encode frame body")
	}
	return json.Marshal(envelope{Version: frameVersion, Body: raw})
}

func decodeFrame(frame []byte) ([]byte, error) {
	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, errors.Wrap(err, "decode frame")
	}
	if env.Version != frameVersion || env.Body == nil {
		return nil, errors.Errorf("unsupported frame version %d", env.Version)
	}
	return env.Body, nil
}
