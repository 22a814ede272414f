// Package marker persists the sync cursor: the marker key of the most
// recently ingested indicator. Every backend is append-only and Read always
// returns the latest appended entry.
package marker

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrStorageUnavailable indicates the backing medium could not be opened,
	// read or written.
	ErrStorageUnavailable = errors.New("marker storage unavailable")

	// ErrInvalidKey indicates a marker key that cannot be stored.
	ErrInvalidKey = errors.New("invalid marker key")
)

// Store is a durable, append-only log of marker keys.
type Store interface {
	// Read returns the most recently appended marker, or "" if none exists.
	Read(ctx context.Context) (string, error)

	// Advance durably appends key as the latest marker.
	Advance(ctx context.Context, key string) error

	// Close releases the backing medium.
	Close() error
}

// ValidateKey rejects keys that cannot round-trip through every backend.
func ValidateKey(key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	if strings.ContainsAny(key, "\r\n") {
		return ErrInvalidKey
	}
	return nil
}

// Compare orders two marker keys. A key's leading run of decimal digits is
// compared numerically and the remainder byte-wise, so "9" < "10" < "10a".
// Keys without a leading digit compare byte-wise against everything else.
// It returns -1, 0 or 1.
func Compare(a, b string) int {
	an, arest := splitNumber(a)
	bn, brest := splitNumber(b)
	if an == "" || bn == "" {
		return strings.Compare(a, b)
	}

	an = strings.TrimLeft(an, "0")
	bn = strings.TrimLeft(bn, "0")
	if len(an) != len(bn) {
		if len(an) < len(bn) {
			return -1
		}
		return 1
	}
	if c := strings.Compare(an, bn); c != 0 {
		return c
	}
	return strings.Compare(arest, brest)
}

// splitNumber splits s into its leading digit run and the rest.
func splitNumber(s string) (digits, rest string) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return s[:i], s[i:]
}
