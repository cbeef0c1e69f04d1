// Package keys provides encryption for user credential shares held by the
// registry. A share grants signing authority over its wallet, so it is never
// stored in plaintext: shares are sealed with AES-256-GCM under a key derived
// from a single master secret.
package keys

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// masterKeySize is the required master secret size (AES-256).
const masterKeySize = 32

// ShareCipher seals and opens user credential shares for storage at rest.
type ShareCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// MasterKeyFromBase64 decodes and validates a base64-encoded 32-byte master key.
func MasterKeyFromBase64(encoded string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 master key: %w", err)
	}
	if len(key) != masterKeySize {
		return nil, fmt.Errorf("master key must be %d bytes, got %d", masterKeySize, len(key))
	}
	return key, nil
}

// MasterKeyCipher implements ShareCipher using AES-256-GCM with a key derived
// from the master secret via HKDF-SHA256.
type MasterKeyCipher struct {
	aead cipher.AEAD
}

// NewMasterKeyCipher derives the share-encryption key from the master secret
// and prepares the AEAD. The derivation is bound to a fixed info string so the
// same master secret can later serve other purposes without key reuse.
func NewMasterKeyCipher(masterKey []byte) (*MasterKeyCipher, error) {
	if len(masterKey) != masterKeySize {
		return nil, fmt.Errorf("master key must be %d bytes (AES-256)", masterKeySize)
	}

	hkdfReader := hkdf.New(sha256.New, masterKey, nil, []byte("wallet-share-encryption"))
	derived := make([]byte, masterKeySize)
	if _, err := io.ReadFull(hkdfReader, derived); err != nil {
		return nil, fmt.Errorf("failed to derive encryption key: %w", err)
	}

	block, err := aes.NewCipher(derived)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &MasterKeyCipher{aead: aead}, nil
}

// Encrypt seals a plaintext share. The result is base64(nonce || ciphertext || tag).
func (c *MasterKeyCipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a sealed share produced by Encrypt.
func (c *MasterKeyCipher) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("failed to decode base64: %w", err)
	}

	nonceSize := c.aead.NonceSize()
	if len(raw) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	plaintext, err := c.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}

	return string(plaintext), nil
}
