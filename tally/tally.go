// Copyright (c) 2026 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package tally

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// ErrCorruptTally reports a token that fails authenticated decryption.
// This is a data-integrity failure: callers must halt the operation and
// never treat it as a zero count.
var ErrCorruptTally = errors.New("corrupt tally token")

// Cipher encrypts and decrypts non-negative vote counts so raw totals are
// never stored in cleartext. Tokens are AES-256-GCM sealed with a random
// nonce, so increments re-encrypt in place and every token is distinct.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher derives the AES key from the configured secret via Keccak-256.
func NewCipher(secret string) (*Cipher, error) {
	if secret == "" {
		return nil, errors.New("tally secret is required")
	}

	d := sha3.NewLegacyKeccak256()
	d.Write([]byte(secret))
	key := d.Sum(nil)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create tally cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create tally cipher: %w", err)
	}

	return &Cipher{aead: aead}, nil
}

// Encrypt seals a count into an opaque token.
func (c *Cipher) Encrypt(count uint64) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate tally nonce: %w", err)
	}

	plaintext := make([]byte, 8)
	binary.BigEndian.PutUint64(plaintext, count)

	return c.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens a token back into its count. Truncated, tampered, or
// foreign-key tokens return ErrCorruptTally.
func (c *Cipher) Decrypt(token []byte) (uint64, error) {
	nonceSize := c.aead.NonceSize()
	if len(token) < nonceSize+8 {
		return 0, ErrCorruptTally
	}

	nonce, ciphertext := token[:nonceSize], token[nonceSize:]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil || len(plaintext) != 8 {
		return 0, ErrCorruptTally
	}

	return binary.BigEndian.Uint64(plaintext), nil
}

// Increment decrypts a token, adds one, and re-encrypts. The returned token
// replaces the old one in place.
func (c *Cipher) Increment(token []byte) ([]byte, error) {
	count, err := c.Decrypt(token)
	if err != nil {
		return nil, err
	}
	return c.Encrypt(count + 1)
}
