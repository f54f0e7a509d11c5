package suprsafe

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Clock abstracts time retrieval so business logic is deterministic in tests.
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// IDGenerator abstracts unique ID generation so tests are deterministic.
type IDGenerator interface {
	New() string
}

// UUIDGenerator produces random UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) New() string { return uuid.New().String() }

// RandomSource supplies the random bytes used for session keys, IVs,
// nonces and salts. Production code uses CryptoRandomSource; tests inject
// a deterministic source so key material is reproducible without ever
// weakening the production path.
type RandomSource interface {
	// Read fills b with random bytes or returns an error. Short reads are
	// errors.
	Read(b []byte) error
}

// CryptoRandomSource reads from crypto/rand.
type CryptoRandomSource struct{}

func (CryptoRandomSource) Read(b []byte) error {
	if _, err := rand.Read(b); err != nil {
		return fmt.Errorf("reading random bytes: %w", err)
	}
	return nil
}
