package sink

import (
	"context"
	"sync"

	"github.com/syntrixbase/intelsync/internal/feed"
)

// MemorySink keeps indicators in memory. Used for dry runs.
type MemorySink struct {
	mu    sync.Mutex
	order []string
	docs  map[string]feed.Indicator
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{docs: make(map[string]feed.Indicator)}
}

// Append implements Sink.
func (s *MemorySink) Append(_ context.Context, ind feed.Indicator) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[ind.ID]; ok {
		return ErrDuplicate
	}
	s.docs[ind.ID] = ind
	s.order = append(s.order, ind.ID)
	return nil
}

// IDs returns stored ids in insertion order.
func (s *MemorySink) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

// Len returns the number of stored indicators.
func (s *MemorySink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}

// Close implements Sink.
func (s *MemorySink) Close(_ context.Context) error { return nil }
