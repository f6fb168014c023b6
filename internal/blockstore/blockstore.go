// Package blockstore persists named byte blobs durably, independent of the
// relational engine. It holds two collections: "databases" (serialized
// database images keyed by user id) and "sessions" (session records keyed by
// session key).
package blockstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
)

// ErrPersistence indicates the underlying store failed a read or write.
// Callers get exactly one attempt; there is no retry here.
var ErrPersistence = errors.New("persistence failed")

// Collection names the two blob namespaces.
type Collection string

const (
	// Databases holds serialized database images, keyed by user id.
	Databases Collection = "databases"
	// Sessions holds session records, keyed by session key.
	Sessions Collection = "sessions"
)

// Store is a directory-backed block store. Initialization is lazy: the root
// and its collections are created on first access.
type Store struct {
	root  string
	ready bool
}

// New returns a store rooted at dir. Nothing touches the filesystem until
// the first Put or Get.
func New(dir string) *Store {
	return &Store{root: dir}
}

// Root returns the store's root directory.
func (s *Store) Root() string {
	return s.root
}

func (s *Store) ensure() error {
	if s.ready {
		return nil
	}
	for _, c := range []Collection{Databases, Sessions} {
		if err := os.MkdirAll(filepath.Join(s.root, string(c)), 0o755); err != nil {
			return fmt.Errorf("%w: init collection %s: %v", ErrPersistence, c, err)
		}
	}
	s.ready = true
	return nil
}

// keyPath maps a key to its file. Keys are ids and session keys, but a
// hostile key must not escape the collection directory.
func (s *Store) keyPath(c Collection, key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("%w: invalid key %q", ErrPersistence, key)
	}
	return filepath.Join(s.root, string(c), key), nil
}

// Put durably writes value under key. The write is atomic: readers see
// either the previous blob or the new one, never a torn file.
func (s *Store) Put(ctx context.Context, c Collection, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ensure(); err != nil {
		return err
	}
	path, err := s.keyPath(c, key)
	if err != nil {
		return err
	}
	if err := atomic.WriteFile(path, bytes.NewReader(value)); err != nil {
		return fmt.Errorf("%w: write %s/%s: %v", ErrPersistence, c, key, err)
	}
	return nil
}

// Get reads the blob stored under key. A missing key resolves to
// (nil, false, nil); only real storage failures return an error.
func (s *Store) Get(ctx context.Context, c Collection, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if err := s.ensure(); err != nil {
		return nil, false, err
	}
	path, err := s.keyPath(c, key)
	if err != nil {
		return nil, false, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%w: read %s/%s: %v", ErrPersistence, c, key, err)
	}
	return data, true, nil
}
