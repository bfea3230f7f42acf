// Package securecache wraps an entitystore.Store with AES-256-GCM
// encryption at rest, adapted from the teacher's securecache wrapper
// (originally built over the flat httpcache.Cache interface) to the
// content-addressed entitystore.Store interface.
package securecache

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/scrypt"

	"github.com/sandrolain/cachegate/entitystore"
)

const (
	scryptN   = 32768
	scryptR   = 8
	scryptP   = 1
	keyLength = 32
	nonceSize = 12
)

// Store wraps an entitystore.Store, encrypting bodies before they reach
// the underlying backend.
type Store struct {
	underlying entitystore.Store
	gcm        cipher.AEAD
}

// New wraps underlying, deriving an AES-256-GCM key from passphrase via
// scrypt.
func New(underlying entitystore.Store, passphrase string) (*Store, error) {
	if underlying == nil {
		return nil, fmt.Errorf("securecache: underlying store cannot be nil")
	}
	gcm, err := newGCM(passphrase)
	if err != nil {
		return nil, err
	}
	return &Store{underlying: underlying, gcm: gcm}, nil
}

func newGCM(passphrase string) (cipher.AEAD, error) {
	salt := sha256.Sum256([]byte("cachegate-securecache-salt-v1"))
	key, err := scrypt.Key([]byte(passphrase), salt[:], scryptN, scryptR, scryptP, keyLength)
	if err != nil {
		return nil, fmt.Errorf("securecache: derive key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("securecache: new cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

func (s *Store) Open(ctx context.Context, digest entitystore.Digest) ([]byte, bool, error) {
	ciphertext, ok, err := s.underlying.Open(ctx, digest)
	if err != nil || !ok {
		return nil, ok, err
	}
	plaintext, err := s.decrypt(ciphertext)
	if err != nil {
		return nil, false, fmt.Errorf("securecache: decrypt %q: %w", digest, err)
	}
	return plaintext, true, nil
}

func (s *Store) Write(ctx context.Context, digest entitystore.Digest, body []byte) error {
	ciphertext, err := s.encrypt(body)
	if err != nil {
		return fmt.Errorf("securecache: encrypt %q: %w", digest, err)
	}
	return s.underlying.Write(ctx, digest, ciphertext)
}

func (s *Store) Purge(ctx context.Context, digest entitystore.Digest) error {
	return s.underlying.Purge(ctx, digest)
}

func (s *Store) encrypt(data []byte) ([]byte, error) {
	nonce := make([]byte, s.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return s.gcm.Seal(nonce, nonce, data, nil), nil
}

func (s *Store) decrypt(data []byte) ([]byte, error) {
	if len(data) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}
	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	return s.gcm.Open(nil, nonce, ciphertext, nil)
}

var _ entitystore.Store = (*Store)(nil)
