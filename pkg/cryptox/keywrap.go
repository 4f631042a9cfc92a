package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

// NonceSize is the AES-GCM nonce length in bytes. Nonces are drawn fresh
// from crypto/rand for every wrap; 96 random bits are operationally treated
// as collision-free under a single master key.
const NonceSize = 12

// MasterKeySize is the required master key length (AES-256).
const MasterKeySize = 32

// ErrCryptoFailure is returned for every unwrap failure. It is deliberately
// opaque: callers must not be able to tell a bad nonce from a corrupted
// ciphertext from a tag mismatch.
var ErrCryptoFailure = errors.New("cryptox: crypto failure")

// KeyWrapper performs authenticated encryption of per-resource data keys
// under a single master key. The master key is injected at construction,
// lives for the process lifetime, and is never mutated, so a KeyWrapper is
// safe for concurrent use.
type KeyWrapper struct {
	aead cipher.AEAD
}

// NewKeyWrapper builds a wrapper from a raw 32-byte master key.
func NewKeyWrapper(masterKey []byte) (*KeyWrapper, error) {
	if len(masterKey) != MasterKeySize {
		return nil, fmt.Errorf("cryptox: master key must be %d bytes, got %d", MasterKeySize, len(masterKey))
	}

	block, err := aes.NewCipher(masterKey)
	if err != nil {
		return nil, fmt.Errorf("cryptox: create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cryptox: create GCM: %w", err)
	}

	return &KeyWrapper{aead: aead}, nil
}

// Wrap encrypts a data key under the master key with a fresh random nonce
// and no associated data. The ciphertext includes the GCM auth tag.
func (w *KeyWrapper) Wrap(dataKey []byte) (ciphertext, nonce []byte, err error) {
	if len(dataKey) == 0 {
		return nil, nil, errors.New("cryptox: empty data key")
	}

	nonce = make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, nil, fmt.Errorf("cryptox: generate nonce: %w", err)
	}

	return w.aead.Seal(nil, nonce, dataKey, nil), nonce, nil
}

// Unwrap decrypts and authenticates a wrapped data key. Any failure, from
// truncated input to a flipped bit, surfaces as ErrCryptoFailure with no
// further detail.
func (w *KeyWrapper) Unwrap(ciphertext, nonce []byte) ([]byte, error) {
	if len(nonce) != NonceSize {
		return nil, ErrCryptoFailure
	}

	dataKey, err := w.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrCryptoFailure
	}
	return dataKey, nil
}
