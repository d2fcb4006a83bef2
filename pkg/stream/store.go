package stream

import (
	"encoding/json"
	"sync"
)

// Store is a bounded, per-key FIFO memory of recent event payloads. The
// newest payload is first; once a key's sequence exceeds capacity the oldest
// entry is evicted. A disabled store ignores every push, so dispatch code
// never needs to branch on the persistence flag.
type Store struct {
	mu       sync.Mutex
	enabled  bool
	capacity int
	events   map[string][]json.RawMessage
}

// NewStore creates a store retaining up to capacity payloads per key.
func NewStore(capacity int, enabled bool) *Store {
	return &Store{
		enabled:  enabled,
		capacity: capacity,
		events:   make(map[string][]json.RawMessage),
	}
}

// Enabled reports whether the store retains pushed payloads.
func (s *Store) Enabled() bool {
	return s.enabled
}

// Push prepends value to the sequence for key. It is a no-op when the store
// is disabled or value is absent.
func (s *Store) Push(key string, value json.RawMessage) {
	if !s.enabled || value == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seq := append([]json.RawMessage{value}, s.events[key]...)
	if len(seq) > s.capacity {
		seq = seq[:s.capacity]
	}
	s.events[key] = seq
}

// Events returns a copy of the retained payloads for key, newest first.
func (s *Store) Events(key string) []json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq := s.events[key]
	out := make([]json.RawMessage, len(seq))
	copy(out, seq)
	return out
}

// Len returns the number of retained payloads for key.
func (s *Store) Len(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events[key])
}

// Clear drops every retained payload.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[string][]json.RawMessage)
}
