// Package crypto provides at-rest encryption for sensitive entity fields.
//
// Keys are derived once per process from the configured secret. The salt is
// fixed application-wide: the key is deterministic per secret, with no
// per-install salt diversity. This is a documented trade-off made to support
// stateless key derivation across deployments.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	keySalt       = "nous_encryption_salt_v1"
	keyIterations = 100_000
	keyLength     = 32
)

// Cipher encrypts and decrypts single strings with AES-256-GCM under a
// PBKDF2-derived key. Safe for concurrent use; the key is read-only after
// construction.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher derives the symmetric key from secret and prepares the AEAD.
func NewCipher(secret string) (*Cipher, error) {
	if secret == "" {
		return nil, fmt.Errorf("encryption secret must not be empty")
	}
	key := pbkdf2.Key([]byte(secret), []byte(keySalt), keyIterations, keyLength, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// Encrypt returns a base64 envelope of nonce||ciphertext||tag. The empty
// string passes through unchanged.
func (c *Cipher) Encrypt(plaintext string) string {
	if plaintext == "" {
		return plaintext
	}
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		// crypto/rand failure is unrecoverable
		panic(fmt.Sprintf("crypto: read nonce: %v", err))
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.URLEncoding.EncodeToString(sealed)
}

// Decrypt reverses Encrypt. Input that is not a valid envelope under the
// current key is returned unchanged: stored values predating the encryption
// rollout are legacy plaintext, and a failed decrypt is indistinguishable
// from that case. Callers must not rely on decrypt failure to detect
// tampering.
func (c *Cipher) Decrypt(value string) string {
	plaintext, _ := c.Open(value)
	return plaintext
}

// Open decrypts value and reports whether it actually was an envelope under
// the current key. Legacy plaintext comes back as (value, false).
func (c *Cipher) Open(value string) (string, bool) {
	if value == "" {
		return value, false
	}
	raw, err := base64.URLEncoding.DecodeString(value)
	if err != nil {
		return value, false
	}
	if len(raw) <= c.aead.NonceSize() {
		return value, false
	}
	nonce, sealed := raw[:c.aead.NonceSize()], raw[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return value, false
	}
	return string(plaintext), true
}
