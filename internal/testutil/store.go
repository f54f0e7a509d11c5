package testutil

import (
	"testing"

	"github.com/mixoploidy8031/suprsafe/internal/database"
	"github.com/mixoploidy8031/suprsafe/internal/suprsafe"
)

// NewTestStore creates an in-memory SQLite store with the schema applied
// and a fixed clock plus sequential IDs. The store is closed when the
// test completes.
func NewTestStore(t *testing.T) suprsafe.Store {
	t.Helper()

	store, err := database.NewSQLiteStore(":memory:", FixedClock(), NewStubIDGenerator())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	t.Cleanup(func() {
		store.Close()
	})

	return store
}
