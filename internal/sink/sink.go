// Package sink appends indicators to the persistent document collection.
package sink

import (
	"context"
	"errors"

	"github.com/syntrixbase/intelsync/internal/feed"
)

var (
	// ErrDuplicate indicates the indicator id is already stored. Callers
	// treat it as an idempotent skip.
	ErrDuplicate = errors.New("indicator already stored")

	// ErrStorageUnavailable indicates the document store could not be reached.
	ErrStorageUnavailable = errors.New("document storage unavailable")
)

// Sink appends indicators keyed by their natural id.
type Sink interface {
	// Append writes one indicator. Writing an id that already exists
	// returns ErrDuplicate and leaves the stored copy untouched.
	Append(ctx context.Context, ind feed.Indicator) error

	// Close releases resources held by the sink.
	Close(ctx context.Context) error
}
