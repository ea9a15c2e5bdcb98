package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/scriptorium/clientkit/core/kvstore"
)

// FileMode restricts the store file to the owning user. Session blobs live
// here, so group/world access is never acceptable.
const FileMode = 0o600

var (
	// ErrEmptyPath is returned when the store is created without a file path.
	ErrEmptyPath = errors.New("filestore: empty file path")
	// ErrCorruptFile is returned when the store file is not valid JSON.
	ErrCorruptFile = errors.New("filestore: corrupt store file")
)

// Store is a file-backed key-value substrate. All keys live in one JSON
// document; every write rewrites the document atomically via a temp file and
// rename, so a crash mid-write leaves the previous document intact.
//
// Safe for concurrent use within one process. It does not coordinate across
// processes.
type Store struct {
	path string
	mu   sync.Mutex
}

// New creates a file-backed substrate at path. The file is created lazily on
// the first write; its parent directory must exist or be creatable.
func New(path string) (*Store, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	return &Store{path: path}, nil
}

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return "", err
	}
	v, ok := doc[key]
	if !ok || v == "" {
		return "", kvstore.ErrNotFound
	}
	return v, nil
}

// Set stores value under key. An empty value is equivalent to Delete.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	if value == "" {
		delete(doc, key)
	} else {
		doc[key] = value
	}
	return s.save(doc)
}

// Delete removes key. Deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := doc[key]; !ok {
		return nil
	}
	delete(doc, key)
	return s.save(doc)
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) load() (map[string]string, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("%w: read %s: %w", kvstore.ErrUnavailable, s.path, err)
	}
	if len(raw) == 0 {
		return map[string]string{}, nil
	}

	doc := map[string]string{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptFile, err)
	}
	return doc, nil
}

func (s *Store) save(doc map[string]string) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("filestore: encode document: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("%w: create directory: %w", kvstore.ErrUnavailable, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %w", kvstore.ErrUnavailable, err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(FileMode); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: chmod temp file: %w", kvstore.ErrUnavailable, err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write temp file: %w", kvstore.ErrUnavailable, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: sync temp file: %w", kvstore.ErrUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close temp file: %w", kvstore.ErrUnavailable, err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("%w: replace store file: %w", kvstore.ErrUnavailable, err)
	}
	return nil
}
