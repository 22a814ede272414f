package marker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileStore keeps markers in a text file, one per line. The last non-empty
// line is the current marker.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore returns a store backed by path. The file is created on the
// first Advance.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Read implements Store.
func (s *FileStore) Read(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("%w: open %s: %w", ErrStorageUnavailable, s.path, err)
	}
	defer f.Close()

	var last string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			last = line
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("%w: read %s: %w", ErrStorageUnavailable, s.path, err)
	}
	return last, nil
}

// Advance implements Store. The line is fsynced before returning.
func (s *FileStore) Advance(_ context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("%w: create marker directory: %w", ErrStorageUnavailable, err)
	}

	f, err := os.OpenFile(s.path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", ErrStorageUnavailable, s.path, err)
	}
	defer f.Close()

	line := key + "\n"
	// Files written by older tooling may not end with a newline.
	terminated, err := endsWithNewline(f)
	if err != nil {
		return fmt.Errorf("%w: inspect %s: %w", ErrStorageUnavailable, s.path, err)
	}
	if !terminated {
		line = "\n" + line
	}

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("%w: append %s: %w", ErrStorageUnavailable, s.path, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("%w: sync %s: %w", ErrStorageUnavailable, s.path, err)
	}
	return nil
}

// Close implements Store.
func (s *FileStore) Close() error { return nil }

func endsWithNewline(f *os.File) (bool, error) {
	info, err := f.Stat()
	if err != nil {
		return false, err
	}
	if info.Size() == 0 {
		return true, nil
	}
	buf := make([]byte, 1)
	if _, err := f.ReadAt(buf, info.Size()-1); err != nil && err != io.EOF {
		return false, err
	}
	return buf[0] == '\n', nil
}
