package stream

import (
	"encoding/json"
	"sync"
)

// Handler consumes one dispatched payload. For event kinds and public
// categories the payload is the frame's content data; for the quote channel
// it is the entire frame.
type Handler func(payload json.RawMessage)

// Registry maps dispatch keys (event-kind names, category names, the quote
// channel) to at most one handler each. Re-registration overwrites.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register installs the handler for key, replacing any previous one.
func (r *Registry) Register(key string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[key] = handler
}

// Unregister removes the handler for key.
func (r *Registry) Unregister(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, key)
}

// Fire invokes the handler for key, if one is registered, and reports
// whether a handler ran. The handler executes on the caller's goroutine so
// dispatch stays sequential with frame arrival.
func (r *Registry) Fire(key string, payload json.RawMessage) bool {
	r.mu.RLock()
	handler := r.handlers[key]
	r.mu.RUnlock()

	if handler == nil {
		return false
	}
	handler(payload)
	return true
}

// Keys returns the registered dispatch keys.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.handlers))
	for k := range r.handlers {
		keys = append(keys, k)
	}
	return keys
}
