// Package file implements an encrypted single-file credstore driver. The
// credential pair is marshaled to JSON and sealed with AES-256-GCM under a
// key derived from the caller's passphrase via Argon2id. The on-disk layout
// is [16-byte salt][12-byte nonce][ciphertext+tag]; a fresh salt and nonce
// are drawn for every write.
package file

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/argon2"

	"github.com/lodestar-hq/lodestar-go/pkg/credstore"
)

// Argon2id parameters, sized for interactive use.
const (
	kdfMemory      = 19 * 1024 // Memory usage in KiB (19 MiB)
	kdfIterations  = 2         // Iteration count
	kdfParallelism = 1         // Number of threads
	kdfKeyLength   = 32        // AES-256 key size
	kdfSaltLength  = 16        // Length of the salt
)

// ErrDecrypt reports that the file could not be opened with the given
// passphrase, either the passphrase is wrong or the file is corrupt.
var ErrDecrypt = errors.New("credstore/file: cannot decrypt credentials file")

// Store persists the credential pair in one sealed file.
type Store struct {
	mu         sync.Mutex
	path       string
	passphrase []byte
	closed     bool
}

// New returns a file-backed store at path. The file and any missing parent
// directories are created on first write; a missing file reads as an empty
// pair.
func New(path, passphrase string) *Store {
	return &Store{path: path, passphrase: []byte(passphrase)}
}

func (s *Store) Get(_ context.Context, kind credstore.Kind) (string, error) {
	if !credstore.ValidKind(kind) {
		return "", credstore.ErrInvalidKind
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", credstore.ErrClosed
	}

	entries, err := s.load()
	if err != nil {
		return "", err
	}
	return entries[string(kind)], nil
}

func (s *Store) Set(_ context.Context, kind credstore.Kind, value string) error {
	if !credstore.ValidKind(kind) {
		return credstore.ErrInvalidKind
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return credstore.ErrClosed
	}

	entries, err := s.load()
	if err != nil {
		return err
	}
	entries[string(kind)] = value
	return s.save(entries)
}

// Clear removes the whole file. Clearing a store that never wrote anything
// is a no-op.
func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return credstore.ErrClosed
	}

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove credentials file: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// load reads and opens the sealed file. A missing file is an empty pair.
func (s *Store) load() (map[string]string, error) {
	sealed, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}

	plaintext, err := s.open(sealed)
	if err != nil {
		return nil, err
	}

	var entries map[string]string
	if err := json.Unmarshal(plaintext, &entries); err != nil {
		return nil, fmt.Errorf("decode credentials file: %w", err)
	}
	if entries == nil {
		entries = map[string]string{}
	}
	return entries, nil
}

// save seals entries and writes them with the temp-file-then-rename pattern
// so readers never observe a partial file.
func (s *Store) save(entries map[string]string) error {
	plaintext, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}

	sealed, err := s.seal(plaintext)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create credentials dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return fmt.Errorf("create temp credentials file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(sealed); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write credentials file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("chmod credentials file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close credentials file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace credentials file: %w", err)
	}
	return nil
}

// seal encrypts plaintext into [salt][nonce][ciphertext+tag].
func (s *Store) seal(plaintext []byte) ([]byte, error) {
	salt := make([]byte, kdfSaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	gcm, err := s.aead(salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	out := make([]byte, 0, len(salt)+len(nonce)+len(plaintext)+gcm.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	return gcm.Seal(out, nonce, plaintext, nil), nil
}

// open decrypts data produced by seal.
func (s *Store) open(sealed []byte) ([]byte, error) {
	if len(sealed) < kdfSaltLength {
		return nil, ErrDecrypt
	}
	salt, rest := sealed[:kdfSaltLength], sealed[kdfSaltLength:]

	gcm, err := s.aead(salt)
	if err != nil {
		return nil, err
	}

	if len(rest) < gcm.NonceSize() {
		return nil, ErrDecrypt
	}
	nonce, ciphertext := rest[:gcm.NonceSize()], rest[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}

func (s *Store) aead(salt []byte) (cipher.AEAD, error) {
	key := argon2.IDKey(s.passphrase, salt, kdfIterations, kdfMemory, kdfParallelism, kdfKeyLength)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return gcm, nil
}
