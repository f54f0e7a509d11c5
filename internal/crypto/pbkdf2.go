package crypto

import (
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/pbkdf2"

	"github.com/mixoploidy8031/suprsafe/internal/suprsafe"
)

// DefaultIterations is the PBKDF2 iteration count used when the config
// does not override it. Deliberately slow: each password check should
// cost a noticeable fraction of a second.
const DefaultIterations = 100_000

// PBKDF2Deriver implements suprsafe.Deriver using PBKDF2-HMAC-SHA256.
type PBKDF2Deriver struct {
	iterations int
}

var _ suprsafe.Deriver = (*PBKDF2Deriver)(nil)

// NewPBKDF2Deriver creates a deriver with the given iteration count.
// Non-positive counts fall back to DefaultIterations.
func NewPBKDF2Deriver(iterations int) *PBKDF2Deriver {
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	return &PBKDF2Deriver{iterations: iterations}
}

// Derive returns length bytes derived from password and salt. It is a
// pure function of its inputs: the same (password, salt) pair always
// yields the same key.
func (d *PBKDF2Deriver) Derive(password string, salt []byte, length int) ([]byte, error) {
	if password == "" {
		return nil, fmt.Errorf("password must not be empty: %w", suprsafe.ErrInvalidInput)
	}
	if len(salt) == 0 {
		return nil, fmt.Errorf("salt must not be empty: %w", suprsafe.ErrInvalidInput)
	}
	if length <= 0 {
		return nil, fmt.Errorf("derived length must be positive, got %d: %w", length, suprsafe.ErrInvalidInput)
	}
	return pbkdf2.Key([]byte(password), salt, d.iterations, length, sha256.New), nil
}
