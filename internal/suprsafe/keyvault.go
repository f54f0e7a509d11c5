package suprsafe

import (
	"fmt"

	"github.com/awnumar/memguard"
)

// KeyVault owns the session's random AES key and IV. It seals them under
// a key derived from the user's main key, and reverses the wrap given the
// same main key. Unwrap is the only gate on the main key: a wrong key
// fails the tag check and nothing is recovered.
type KeyVault struct {
	deriver Deriver
	cipher  Cipher
	random  RandomSource
}

// NewKeyVault creates a KeyVault with the provided primitives.
func NewKeyVault(deriver Deriver, cipher Cipher, random RandomSource) *KeyVault {
	return &KeyVault{
		deriver: deriver,
		cipher:  cipher,
		random:  random,
	}
}

// CreateSession generates fresh random key material for one encryption
// batch.
func (v *KeyVault) CreateSession() (*SessionKeyMaterial, error) {
	key := make([]byte, KeySize)
	if err := v.random.Read(key); err != nil {
		return nil, fmt.Errorf("generating session key: %w", err)
	}
	iv := make([]byte, IVSize)
	if err := v.random.Read(iv); err != nil {
		return nil, fmt.Errorf("generating session IV: %w", err)
	}
	return NewSessionKeyMaterial(key, iv)
}

// Wrap seals the session key material under a key derived from mainKey.
// A fresh salt and nonce are generated per wrap, so wrapping the same
// material twice yields different blobs that unwrap identically.
func (v *KeyVault) Wrap(session *SessionKeyMaterial, mainKey string) (*WrappedKeyBlob, error) {
	if mainKey == "" {
		return nil, fmt.Errorf("main key must not be empty: %w", ErrInvalidInput)
	}

	salt := make([]byte, SaltSize)
	if err := v.random.Read(salt); err != nil {
		return nil, fmt.Errorf("generating wrap salt: %w", err)
	}
	nonce := make([]byte, NonceSize)
	if err := v.random.Read(nonce); err != nil {
		return nil, fmt.Errorf("generating wrap nonce: %w", err)
	}

	wrapKey, err := v.deriver.Derive(mainKey, salt, KeySize)
	if err != nil {
		return nil, fmt.Errorf("deriving wrapping key: %w", err)
	}
	defer memguard.WipeBytes(wrapKey)

	key, iv, cleanup, err := session.Open()
	if err != nil {
		return nil, err
	}
	plaintext := make([]byte, 0, KeySize+IVSize)
	plaintext = append(plaintext, key...)
	plaintext = append(plaintext, iv...)
	cleanup()
	defer memguard.WipeBytes(plaintext)

	ciphertext, tag, err := v.cipher.Seal(wrapKey, nonce, plaintext)
	if err != nil {
		return nil, fmt.Errorf("sealing session key material: %w", err)
	}

	return &WrappedKeyBlob{
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: ciphertext,
		Tag:        tag,
	}, nil
}

// Unwrap reverses Wrap. It fails with ErrAuthentication if mainKey is
// wrong, and fails closed: no partial key material is ever returned.
func (v *KeyVault) Unwrap(blob *WrappedKeyBlob, mainKey string) (*SessionKeyMaterial, error) {
	if mainKey == "" {
		return nil, fmt.Errorf("main key must not be empty: %w", ErrInvalidInput)
	}

	wrapKey, err := v.deriver.Derive(mainKey, blob.Salt, KeySize)
	if err != nil {
		return nil, fmt.Errorf("deriving wrapping key: %w", err)
	}
	defer memguard.WipeBytes(wrapKey)

	plaintext, err := v.cipher.Open(wrapKey, blob.Nonce, blob.Ciphertext, blob.Tag)
	if err != nil {
		return nil, fmt.Errorf("unwrapping session key material: %w", err)
	}

	if len(plaintext) != KeySize+IVSize {
		memguard.WipeBytes(plaintext)
		return nil, fmt.Errorf("unwrapped material has wrong size %d: %w", len(plaintext), ErrCorruptArtifact)
	}

	return NewSessionKeyMaterial(plaintext[:KeySize], plaintext[KeySize:])
}
