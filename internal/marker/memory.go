package marker

import (
	"context"
	"sync"
)

// MemoryStore keeps markers in process memory. Dry runs seed it from the
// persistent store so nothing durable is advanced.
type MemoryStore struct {
	mu      sync.Mutex
	entries []string
}

// NewMemoryStore creates a store whose current marker is initial.
func NewMemoryStore(initial string) *MemoryStore {
	s := &MemoryStore{}
	if initial != "" {
		s.entries = append(s.entries, initial)
	}
	return s
}

// Read implements Store.
func (s *MemoryStore) Read(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) == 0 {
		return "", nil
	}
	return s.entries[len(s.entries)-1], nil
}

// Advance implements Store.
func (s *MemoryStore) Advance(_ context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, key)
	return nil
}

// History returns every marker in append order.
func (s *MemoryStore) History() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.entries...)
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }
