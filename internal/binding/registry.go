package binding

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/bryanchriswhite/wincap/internal/encoder"
)

// ErrUnknownHandle is returned for handles that were never issued or were
// already finished
var ErrUnknownHandle = errors.New("unknown encoder handle")

// Handle is an opaque encoder reference. Zero is never issued.
type Handle uintptr

// Registry maps handles to live encoders
type Registry struct {
	next     atomic.Uint64
	mu       sync.Mutex
	encoders map[Handle]*encoder.Encoder
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{encoders: make(map[Handle]*encoder.Encoder)}
}

// Add stores an encoder and returns its new handle
func (r *Registry) Add(e *encoder.Encoder) Handle {
	h := Handle(r.next.Add(1))
	r.mu.Lock()
	r.encoders[h] = e
	r.mu.Unlock()
	return h
}

// Get returns the encoder for h
func (r *Registry) Get(h Handle) (*encoder.Encoder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.encoders[h]
	if !ok {
		return nil, ErrUnknownHandle
	}
	return e, nil
}

// Remove deletes h and returns its encoder
func (r *Registry) Remove(h Handle) (*encoder.Encoder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.encoders[h]
	if !ok {
		return nil, ErrUnknownHandle
	}
	delete(r.encoders, h)
	return e, nil
}

// Len returns the number of live encoders
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.encoders)
}

// Drain removes and returns every live encoder
func (r *Registry) Drain() map[Handle]*encoder.Encoder {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := r.encoders
	r.encoders = make(map[Handle]*encoder.Encoder)
	return out
}
