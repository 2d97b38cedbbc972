// Package crypto seals secrets such as delegated calendar tokens before they
// are written to storage.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// ErrCiphertextTooShort is returned when input is shorter than the nonce.
var ErrCiphertextTooShort = errors.New("crypto: ciphertext too short")

// Sealer turns a secret into an opaque string and back.
type Sealer interface {
	Seal(plaintext string) (string, error)
	Open(sealed string) (string, error)
}

// AESGCM seals with AES-256-GCM. Output is base64(nonce || ciphertext).
type AESGCM struct {
	aead cipher.AEAD
}

// NewAESGCMFromBase64Key builds a sealer from a base64-encoded 32-byte key.
func NewAESGCMFromBase64Key(encodedKey string) (*AESGCM, error) {
	if encodedKey == "" {
		return nil, errors.New("crypto: encryption key is empty")
	}
	key, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("crypto: decode key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("crypto: key must be 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &AESGCM{aead: aead}, nil
}

// Seal encrypts plaintext. The empty string stays empty so "no token" is
// still recognizable in storage.
func (a *AESGCM) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	nonce := make([]byte, a.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	out := a.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Open reverses Seal.
func (a *AESGCM) Open(sealed string) (string, error) {
	if sealed == "" {
		return "", nil
	}
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("crypto: decode ciphertext: %w", err)
	}
	n := a.aead.NonceSize()
	if len(raw) < n {
		return "", ErrCiphertextTooShort
	}
	plain, err := a.aead.Open(nil, raw[:n], raw[n:], nil)
	if err != nil {
		return "", fmt.Errorf("crypto: open: %w", err)
	}
	return string(plain), nil
}

// Plaintext stores secrets as-is. Used when no key is configured.
type Plaintext struct{}

func (Plaintext) Seal(s string) (string, error) { return s, nil }
func (Plaintext) Open(s string) (string, error) { return s, nil }
