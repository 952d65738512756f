package secstore

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

const (
	argon2Time      = 3
	argon2Memory    = 64 * 1024 // KiB
	argon2Threads   = 4
	argon2KeyLength = 32

	saltSize  = 16
	nonceSize = 12
)

// EncryptedStore seals every value with AES-256-GCM before handing it to the
// underlying store. The key is derived from a passphrase with Argon2id using
// a fresh salt per value; the envelope layout is salt || nonce || ciphertext.
type EncryptedStore struct {
	inner      Store
	passphrase string
}

// NewEncrypted wraps a store with passphrase-based encryption.
func NewEncrypted(inner Store, passphrase string) (*EncryptedStore, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("passphrase cannot be empty")
	}
	return &EncryptedStore{inner: inner, passphrase: passphrase}, nil
}

func (s *EncryptedStore) Save(ctx context.Context, key string, value []byte) error {
	sealed, err := s.seal(value)
	if err != nil {
		return fmt.Errorf("seal %s: %w", key, err)
	}
	return s.inner.Save(ctx, key, sealed)
}

func (s *EncryptedStore) Load(ctx context.Context, key string) ([]byte, error) {
	sealed, err := s.inner.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	value, err := s.open(sealed)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", key, err)
	}
	return value, nil
}

func (s *EncryptedStore) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, key)
}

func (s *EncryptedStore) seal(plaintext []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	gcm, err := s.aead(salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	envelope := make([]byte, 0, saltSize+nonceSize+len(plaintext)+gcm.Overhead())
	envelope = append(envelope, salt...)
	envelope = append(envelope, nonce...)
	return gcm.Seal(envelope, nonce, plaintext, nil), nil
}

func (s *EncryptedStore) open(envelope []byte) ([]byte, error) {
	if len(envelope) < saltSize+nonceSize {
		return nil, fmt.Errorf("envelope too short")
	}
	salt := envelope[:saltSize]
	nonce := envelope[saltSize : saltSize+nonceSize]
	ciphertext := envelope[saltSize+nonceSize:]

	gcm, err := s.aead(salt)
	if err != nil {
		return nil, err
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plaintext, nil
}

func (s *EncryptedStore) aead(salt []byte) (cipher.AEAD, error) {
	key := argon2.IDKey([]byte(s.passphrase), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLength)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
