package suprsafe

import (
	"fmt"

	"github.com/awnumar/memguard"
)

// SessionKeyMaterial is the random AES key and IV generated for one
// encryption batch. The material lives inside a memguard enclave: it is
// encrypted at rest in process memory and only decrypted transiently
// while a cryptographic operation needs it. It exists in plaintext on
// disk nowhere, only inside the wrapped-key blob.
type SessionKeyMaterial struct {
	enclave *memguard.Enclave
}

// NewSessionKeyMaterial seals a key and IV into an enclave. The source
// slices are wiped.
func NewSessionKeyMaterial(key, iv []byte) (*SessionKeyMaterial, error) {
	if len(key) != KeySize {
		memguard.WipeBytes(key)
		memguard.WipeBytes(iv)
		return nil, fmt.Errorf("session key must be %d bytes, got %d: %w", KeySize, len(key), ErrInvalidInput)
	}
	if len(iv) != IVSize {
		memguard.WipeBytes(key)
		memguard.WipeBytes(iv)
		return nil, fmt.Errorf("session IV must be %d bytes, got %d: %w", IVSize, len(iv), ErrInvalidInput)
	}

	combined := make([]byte, 0, KeySize+IVSize)
	combined = append(combined, key...)
	combined = append(combined, iv...)
	memguard.WipeBytes(key)
	memguard.WipeBytes(iv)

	// NewBufferFromBytes wipes combined after copying it in.
	buf := memguard.NewBufferFromBytes(combined)
	return &SessionKeyMaterial{enclave: buf.Seal()}, nil
}

// Open decrypts the enclave and returns the key and IV. The caller must
// call cleanup as soon as the operation is done; the returned slices are
// invalid afterwards.
func (s *SessionKeyMaterial) Open() (key, iv []byte, cleanup func(), err error) {
	if s == nil || s.enclave == nil {
		return nil, nil, nil, fmt.Errorf("session key material destroyed: %w", ErrInvalidInput)
	}
	buf, err := s.enclave.Open()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening session enclave: %w", err)
	}
	b := buf.Bytes()
	return b[:KeySize], b[KeySize:], func() { buf.Destroy() }, nil
}

// Destroy drops the enclave. The material is unrecoverable afterwards.
func (s *SessionKeyMaterial) Destroy() {
	if s != nil {
		s.enclave = nil
	}
}
