package marker

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/cockroachdb/pebble"
)

// PebbleStore keeps markers in a local PebbleDB under
// marker/<stream>/<seq>, seq zero-padded so keys sort in append order.
type PebbleStore struct {
	db     *pebble.DB
	prefix []byte
	mu     sync.Mutex
	seq    uint64
}

// OpenPebbleStore opens (or creates) a PebbleDB at path.
// Streams must not contain '/', which separates the key segments.
func OpenPebbleStore(path, stream string) (*PebbleStore, error) {
	if stream == "" || strings.Contains(stream, "/") {
		return nil, fmt.Errorf("invalid marker stream %q", stream)
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("%w: create marker directory: %w", ErrStorageUnavailable, err)
	}

	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("%w: open pebble database: %w", ErrStorageUnavailable, err)
	}

	s := &PebbleStore{
		db:     db,
		prefix: []byte("marker/" + stream + "/"),
	}

	key, _, err := s.last()
	if err != nil {
		db.Close()
		return nil, err
	}
	if key != nil {
		seq, err := strconv.ParseUint(string(key[len(s.prefix):]), 10, 64)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: corrupt marker key %q", ErrStorageUnavailable, key)
		}
		s.seq = seq
	}
	return s, nil
}

// upperBound is the first key past every key with the stream prefix.
func (s *PebbleStore) upperBound() []byte {
	end := append([]byte(nil), s.prefix...)
	end[len(end)-1]++
	return end
}

func (s *PebbleStore) last() ([]byte, []byte, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: s.prefix,
		UpperBound: s.upperBound(),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: create iterator: %w", ErrStorageUnavailable, err)
	}
	defer iter.Close()

	if !iter.Last() {
		return nil, nil, iter.Error()
	}
	key := append([]byte(nil), iter.Key()...)
	value := append([]byte(nil), iter.Value()...)
	return key, value, nil
}

// Read implements Store.
func (s *PebbleStore) Read(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, value, err := s.last()
	if err != nil {
		return "", fmt.Errorf("%w: read marker: %w", ErrStorageUnavailable, err)
	}
	return string(value), nil
}

// Advance implements Store. Writes are synced to the WAL.
func (s *PebbleStore) Advance(_ context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.seq + 1
	k := append(append([]byte(nil), s.prefix...), fmt.Sprintf("%020d", next)...)
	if err := s.db.Set(k, []byte(key), pebble.Sync); err != nil {
		return fmt.Errorf("%w: write marker: %w", ErrStorageUnavailable, err)
	}
	s.seq = next
	return nil
}

// Close implements Store.
func (s *PebbleStore) Close() error {
	return s.db.Close()
}
