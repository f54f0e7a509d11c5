package suprsafe

import (
	"crypto/subtle"
	"fmt"
)

// AccountGate verifies a password against a stored derived-password
// record before permitting the encrypt or decrypt flows. A second gate
// instance, pointed at a separate record, administers the SuprSafe+
// admin password. The gate never logs or persists the plaintext password.
type AccountGate struct {
	recordPath string
	deriver    Deriver
	fsmgr      FilesystemManager
	random     RandomSource
}

// NewAccountGate creates a gate backed by the record file at recordPath.
func NewAccountGate(recordPath string, deriver Deriver, fsmgr FilesystemManager, random RandomSource) *AccountGate {
	return &AccountGate{
		recordPath: recordPath,
		deriver:    deriver,
		fsmgr:      fsmgr,
		random:     random,
	}
}

// IsConfigured returns true if the record file exists.
func (g *AccountGate) IsConfigured() bool {
	return g.fsmgr.Exists(g.recordPath)
}

// Initialize creates the record on first run: a fresh random salt plus
// the derived password bytes. Refuses to overwrite an existing record.
func (g *AccountGate) Initialize(password string) error {
	if password == "" {
		return fmt.Errorf("password must not be empty: %w", ErrInvalidInput)
	}
	if g.IsConfigured() {
		return fmt.Errorf("account record already exists at %s", g.recordPath)
	}

	salt := make([]byte, SaltSize)
	if err := g.random.Read(salt); err != nil {
		return fmt.Errorf("generating salt: %w", err)
	}

	derived, err := g.deriver.Derive(password, salt, KeySize)
	if err != nil {
		return fmt.Errorf("deriving password record: %w", err)
	}

	record := &AccountRecord{Salt: salt, Derived: derived}
	if err := g.fsmgr.WriteFile(g.recordPath, record.Marshal(), 0600); err != nil {
		return fmt.Errorf("writing account record: %w", err)
	}
	return nil
}

// Verify re-derives the password with the record's stored salt and
// compares against the stored derived value in constant time.
func (g *AccountGate) Verify(password string) (bool, error) {
	if password == "" {
		return false, fmt.Errorf("password must not be empty: %w", ErrInvalidInput)
	}

	data, err := g.fsmgr.ReadFile(g.recordPath)
	if err != nil {
		return false, fmt.Errorf("reading account record: %w", err)
	}

	record, err := UnmarshalAccountRecord(data)
	if err != nil {
		return false, err
	}

	derived, err := g.deriver.Derive(password, record.Salt, len(record.Derived))
	if err != nil {
		return false, fmt.Errorf("deriving password: %w", err)
	}

	return subtle.ConstantTimeCompare(derived, record.Derived) == 1, nil
}
