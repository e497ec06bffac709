package notify

import (
	"context"
	"sync"
)

// Channel delivers a ready notice through one medium.
type Channel interface {
	Name() string
	Send(ctx context.Context, n ReadyNotice) error
}

// Registry holds the configured channels in registration order.
type Registry struct {
	mu       sync.RWMutex
	order    []string
	channels map[string]Channel
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		channels: make(map[string]Channel),
	}
}

// Register adds a channel under its name, replacing any previous one.
func (r *Registry) Register(c Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.channels[c.Name()]; !exists {
		r.order = append(r.order, c.Name())
	}
	r.channels[c.Name()] = c
}

// Get returns the channel with the given name, or false if not registered.
func (r *Registry) Get(name string) (Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.channels[name]
	return c, ok
}

// All returns the registered channels in registration order.
func (r *Registry) All() []Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Channel, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.channels[name])
	}
	return out
}
