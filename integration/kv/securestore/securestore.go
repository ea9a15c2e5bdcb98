package securestore

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/scriptorium/clientkit/core/kvstore"
)

// KeySize is the required encryption key length in bytes.
const KeySize = chacha20poly1305.KeySize

// FileMode restricts the store file to the owning user.
const FileMode = 0o600

var (
	// ErrEmptyPath is returned when the store is created without a file path.
	ErrEmptyPath = errors.New("securestore: empty file path")
	// ErrInvalidKeySize is returned when the key is not KeySize bytes.
	ErrInvalidKeySize = errors.New("securestore: key must be 32 bytes")
	// ErrCorruptFile is returned when the store file cannot be decrypted,
	// either because it was tampered with or the key is wrong.
	ErrCorruptFile = errors.New("securestore: cannot decrypt store file")
)

// Store is an encrypted file-backed key-value substrate. All keys live in a
// single JSON document sealed with XChaCha20-Poly1305 under a caller-supplied
// key; a fresh random nonce is generated for every write and prefixed to the
// ciphertext. Writes go through a temp file and an atomic rename.
//
// Safe for concurrent use within one process.
type Store struct {
	path string
	key  []byte
	mu   sync.Mutex
}

// New creates an encrypted substrate at path sealed under key. The key must
// be KeySize bytes of cryptographically random material; derive it from the
// platform keychain or equivalent, never from a password directly.
func New(path string, key []byte) (*Store, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	if len(key) != KeySize {
		return nil, ErrInvalidKeySize
	}
	k := make([]byte, KeySize)
	copy(k, key)
	return &Store{path: path, key: k}, nil
}

// GenerateKey returns a fresh random encryption key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("securestore: generate key: %w", err)
	}
	return key, nil
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

	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, fmt.Errorf("securestore: init cipher: %w", err)
	}
	if len(raw) < aead.NonceSize() {
		return nil, ErrCorruptFile
	}
	nonce, sealed := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptFile, err)
	}

	doc := map[string]string{}
	if err := json.Unmarshal(plain, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptFile, err)
	}
	return doc, nil
}

func (s *Store) save(doc map[string]string) error {
	plain, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("securestore: encode document: %w", err)
	}

	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return fmt.Errorf("securestore: init cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("securestore: generate nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, plain, nil)

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
	if _, err := tmp.Write(sealed); err != nil {
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
