// File: internal/infra/security/secret_box.go
package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

const sealedPrefix = "v1:"

var ErrNotSealed = errors.New("value is not sealed")

// SecretBox encrypts secrets at rest with AES-GCM. Each value is bound to a
// scope (typically the owning row id) so a ciphertext copied to another row
// fails to open.
type SecretBox struct {
	gcm cipher.AEAD
}

// NewSecretBox takes a 16, 24 or 32 byte key.
func NewSecretBox(key string) (*SecretBox, error) {
	k := []byte(key)
	switch len(k) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("encryption key must be 16, 24, or 32 bytes; got %d", len(k))
	}
	block, err := aes.NewCipher(k)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return &SecretBox{gcm: gcm}, nil
}

// Seal returns "v1:" + base64(nonce || ciphertext). Empty input stays empty.
func (b *SecretBox) Seal(plaintext, scope string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	nonce := make([]byte, b.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}
	ct := b.gcm.Seal(nonce, nonce, []byte(plaintext), []byte(scope))
	return sealedPrefix + base64.StdEncoding.EncodeToString(ct), nil
}

// Open reverses Seal for the same scope.
func (b *SecretBox) Open(sealed, scope string) (string, error) {
	if sealed == "" {
		return "", nil
	}
	if !strings.HasPrefix(sealed, sealedPrefix) {
		return "", ErrNotSealed
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(sealed, sealedPrefix))
	if err != nil {
		return "", fmt.Errorf("base64 decode: %w", err)
	}
	ns := b.gcm.NonceSize()
	if len(data) < ns {
		return "", errors.New("ciphertext too short")
	}
	pt, err := b.gcm.Open(nil, data[:ns], data[ns:], []byte(scope))
	if err != nil {
		return "", fmt.Errorf("gcm open: %w", err)
	}
	return string(pt), nil
}

// IsSealed reports whether v looks like Seal output.
func IsSealed(v string) bool { return strings.HasPrefix(v, sealedPrefix) }
