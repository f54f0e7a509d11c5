package suprsafe_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mixoploidy8031/suprsafe/internal/fs"
	"github.com/mixoploidy8031/suprsafe/internal/suprsafe"
	"github.com/mixoploidy8031/suprsafe/internal/testutil"
)

// newLockedDir creates a temp directory populated with one artifact set,
// a wrapped-key blob and one plaintext bystander file.
func newLockedDir(t *testing.T) *suprsafe.Path {
	t.Helper()
	dir := t.TempDir()

	for name, content := range map[string]string{
		"notes.txt.enc":       "ciphertext",
		"notes.txt.enc.tag":   "tag bytes here--",
		"notes.txt.enc.nonce": "nonce bytes.",
		"bystander.txt":       "never encrypted",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0600); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}

	blobDir := filepath.Join(dir, suprsafe.KeyBlobDir)
	if err := os.MkdirAll(blobDir, 0700); err != nil {
		t.Fatalf("creating blob dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(blobDir, suprsafe.KeyBlobName), []byte("wrapped"), 0600); err != nil {
		t.Fatalf("writing blob: %v", err)
	}

	p, err := fs.NewOSFilesystemManager().Resolve(dir)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	return p
}

func newTestGuard(t *testing.T, threshold int, enabled bool) (*suprsafe.LockoutGuard, suprsafe.Store) {
	t.Helper()
	store := testutil.NewTestStore(t)
	guard := suprsafe.NewLockoutGuard(
		store,
		fs.NewOverwriteEraser(1),
		fs.NewOSFilesystemManager(),
		suprsafe.NewNopLogger(),
		threshold,
		enabled,
	)
	return guard, store
}

func TestLockoutGuard_BelowThreshold(t *testing.T) {
	t.Parallel()
	guard, store := newTestGuard(t, 3, true)
	dir := newLockedDir(t)

	d, err := store.RegisterDirectory(dir.String())
	if err != nil {
		t.Fatalf("RegisterDirectory() error = %v", err)
	}

	res, err := guard.RecordFailure(dir, d.ID)
	if err != nil {
		t.Fatalf("RecordFailure() error = %v", err)
	}
	if res.Locked {
		t.Error("locked after one failure, threshold is 3")
	}
	if res.Attempts != 1 || res.Remaining != 2 {
		t.Errorf("attempts = %d remaining = %d, want 1 and 2", res.Attempts, res.Remaining)
	}

	// The ciphertext is untouched.
	if _, err := os.Stat(filepath.Join(dir.String(), "notes.txt.enc")); err != nil {
		t.Errorf("artifact gone before threshold: %v", err)
	}
}

func TestLockoutGuard_ThresholdWipes(t *testing.T) {
	t.Parallel()
	guard, store := newTestGuard(t, 3, true)
	dir := newLockedDir(t)

	d, err := store.RegisterDirectory(dir.String())
	if err != nil {
		t.Fatalf("RegisterDirectory() error = %v", err)
	}

	var res *suprsafe.AttemptResult
	for i := 0; i < 3; i++ {
		res, err = guard.RecordFailure(dir, d.ID)
		if err != nil {
			t.Fatalf("RecordFailure() #%d error = %v", i+1, err)
		}
	}

	if !res.Locked {
		t.Fatal("not locked after reaching the threshold")
	}
	// Three artifact parts plus the wrapped-key blob.
	if res.Wiped != 4 {
		t.Errorf("wiped = %d, want 4", res.Wiped)
	}

	for _, name := range []string{"notes.txt.enc", "notes.txt.enc.tag", "notes.txt.enc.nonce"} {
		if _, err := os.Stat(filepath.Join(dir.String(), name)); !os.IsNotExist(err) {
			t.Errorf("artifact %s survived the wipe", name)
		}
	}
	blobPath := filepath.Join(dir.String(), suprsafe.KeyBlobDir, suprsafe.KeyBlobName)
	if _, err := os.Stat(blobPath); !os.IsNotExist(err) {
		t.Error("wrapped-key blob survived the wipe")
	}

	// Plaintext files that were never encrypted are left alone.
	if _, err := os.Stat(filepath.Join(dir.String(), "bystander.txt")); err != nil {
		t.Errorf("bystander file was wiped: %v", err)
	}

	// The lock persists in the store.
	if err := guard.CheckActive(d.ID); !errors.Is(err, suprsafe.ErrDirectoryLocked) {
		t.Errorf("CheckActive() error = %v, want ErrDirectoryLocked", err)
	}
}

func TestLockoutGuard_DisabledNeverWipes(t *testing.T) {
	t.Parallel()
	guard, store := newTestGuard(t, 3, false)
	dir := newLockedDir(t)

	d, err := store.RegisterDirectory(dir.String())
	if err != nil {
		t.Fatalf("RegisterDirectory() error = %v", err)
	}

	for i := 0; i < 10; i++ {
		res, err := guard.RecordFailure(dir, d.ID)
		if err != nil {
			t.Fatalf("RecordFailure() error = %v", err)
		}
		if res.Locked {
			t.Fatal("disabled guard locked the directory")
		}
	}

	if _, err := os.Stat(filepath.Join(dir.String(), "notes.txt.enc")); err != nil {
		t.Errorf("disabled guard wiped ciphertext: %v", err)
	}
	if err := guard.CheckActive(d.ID); err != nil {
		t.Errorf("CheckActive() error = %v, want nil", err)
	}
}

func TestLockoutGuard_RecordSuccessResetsCounter(t *testing.T) {
	t.Parallel()
	guard, store := newTestGuard(t, 3, true)
	dir := newLockedDir(t)

	d, err := store.RegisterDirectory(dir.String())
	if err != nil {
		t.Fatalf("RegisterDirectory() error = %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := guard.RecordFailure(dir, d.ID); err != nil {
			t.Fatalf("RecordFailure() error = %v", err)
		}
	}
	if err := guard.RecordSuccess(d.ID); err != nil {
		t.Fatalf("RecordSuccess() error = %v", err)
	}

	// The next failure starts from zero again.
	res, err := guard.RecordFailure(dir, d.ID)
	if err != nil {
		t.Fatalf("RecordFailure() error = %v", err)
	}
	if res.Attempts != 1 {
		t.Errorf("attempts = %d after reset, want 1", res.Attempts)
	}
	if res.Locked {
		t.Error("locked after reset, want unlocked")
	}
}
