package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"github.com/mixoploidy8031/suprsafe/internal/suprsafe"
)

// GCMCipher implements suprsafe.Cipher using AES-256-GCM. The ciphertext
// and the 16-byte authentication tag are handled as separate values
// because they are persisted as separate artifact files.
type GCMCipher struct{}

var _ suprsafe.Cipher = (*GCMCipher)(nil)

// NewGCMCipher creates a GCMCipher.
func NewGCMCipher() *GCMCipher {
	return &GCMCipher{}
}

// Seal encrypts plaintext under key and nonce. The nonce must be unique
// per key; the caller guarantees that.
func (c *GCMCipher) Seal(key, nonce, plaintext []byte) ([]byte, []byte, error) {
	aead, err := newAEAD(key, len(nonce))
	if err != nil {
		return nil, nil, err
	}

	sealed := aead.Seal(nil, nonce, plaintext, nil)
	// GCM appends the tag to the ciphertext; split it back off.
	split := len(sealed) - suprsafe.TagSize
	return sealed[:split], sealed[split:], nil
}

// Open decrypts ciphertext and verifies the tag. A tag mismatch is
// reported as ErrAuthentication with no plaintext returned.
func (c *GCMCipher) Open(key, nonce, ciphertext, tag []byte) ([]byte, error) {
	aead, err := newAEAD(key, len(nonce))
	if err != nil {
		return nil, err
	}
	if len(tag) != suprsafe.TagSize {
		return nil, fmt.Errorf("tag must be %d bytes, got %d: %w", suprsafe.TagSize, len(tag), suprsafe.ErrCorruptArtifact)
	}

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: tag verification failed", suprsafe.ErrAuthentication)
	}
	return plaintext, nil
}

func newAEAD(key []byte, nonceSize int) (cipher.AEAD, error) {
	if len(key) != suprsafe.KeySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d: %w", suprsafe.KeySize, len(key), suprsafe.ErrInvalidInput)
	}
	if nonceSize <= 0 {
		return nil, fmt.Errorf("nonce must not be empty: %w", suprsafe.ErrCorruptArtifact)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating AES cipher: %w", err)
	}

	if nonceSize == suprsafe.NonceSize {
		aead, err := cipher.NewGCM(block)
		if err != nil {
			return nil, fmt.Errorf("creating GCM: %w", err)
		}
		return aead, nil
	}
	aead, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, fmt.Errorf("creating GCM with %d-byte nonce: %w", nonceSize, err)
	}
	return aead, nil
}
