package suprsafe_test

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/mixoploidy8031/suprsafe/internal/crypto"
	"github.com/mixoploidy8031/suprsafe/internal/fs"
	"github.com/mixoploidy8031/suprsafe/internal/suprsafe"
	"github.com/mixoploidy8031/suprsafe/internal/testutil"
	"github.com/mixoploidy8031/suprsafe/internal/vault"
)

const (
	testPassword = "Tr0ub4dor&3"
)

type serviceFixture struct {
	service *suprsafe.SafeService
	store   suprsafe.Store
	escrow  *vault.MemoryVault
	fsmgr   *fs.OSFilesystemManager
	dir     *suprsafe.Path
}

type fixtureOptions struct {
	lockoutEnabled bool
	withEscrow     bool
	brokenEscrow   bool
	logger         suprsafe.Logger
}

// brokenVault stands in for an unreachable escrow backend.
type brokenVault struct{}

func (brokenVault) PutBlob(string, string, io.Reader, int64) error {
	return errors.New("escrow vault unreachable")
}

func (brokenVault) GetBlob(string, string, io.Writer) error {
	return errors.New("escrow vault unreachable")
}

func (brokenVault) ValidateSetup() error {
	return errors.New("escrow vault unreachable")
}

// recordingLogger captures warnings so tests can assert degraded runs
// are reported.
type recordingLogger struct {
	suprsafe.NopLogger
	mu       sync.Mutex
	warnings []string
}

func (l *recordingLogger) Warn(msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warnings = append(l.warnings, msg)
}

func (l *recordingLogger) warned() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.warnings...)
}

// newServiceFixture wires a full SafeService against a temp directory,
// an in-memory store and an initialized account gate.
func newServiceFixture(t *testing.T, opts fixtureOptions) *serviceFixture {
	t.Helper()

	fsmgr := fs.NewOSFilesystemManager()
	eraser := fs.NewOverwriteEraser(1)
	deriver := crypto.NewPBKDF2Deriver(1000)
	cipher := crypto.NewGCMCipher()
	random := testutil.NewStubRandomSource()
	logger := opts.logger
	if logger == nil {
		logger = suprsafe.NewNopLogger()
	}
	store := testutil.NewTestStore(t)

	authDir := t.TempDir()
	gate := suprsafe.NewAccountGate(filepath.Join(authDir, "account.bin"), deriver, fsmgr, random)
	if err := gate.Initialize(testPassword); err != nil {
		t.Fatalf("initializing account gate: %v", err)
	}

	guard := suprsafe.NewLockoutGuard(store, eraser, fsmgr, logger, 3, opts.lockoutEnabled)
	keyvault := suprsafe.NewKeyVault(deriver, cipher, random)
	codec := suprsafe.NewFileCodec(cipher, fsmgr, random, logger)

	var escrow *vault.MemoryVault
	var escrowIface suprsafe.EscrowVault
	switch {
	case opts.brokenEscrow:
		escrowIface = brokenVault{}
	case opts.withEscrow:
		escrow = vault.NewMemoryVault("test")
		escrowIface = escrow
	}

	svc := suprsafe.NewSafeService(store, escrowIface, fsmgr, eraser, gate, guard, keyvault, codec, logger)

	dataDir := t.TempDir()
	dir, err := fsmgr.Resolve(dataDir)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	return &serviceFixture{
		service: svc,
		store:   store,
		escrow:  escrow,
		fsmgr:   fsmgr,
		dir:     dir,
	}
}

func (f *serviceFixture) writeFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(f.dir.String(), name)
	if err := os.WriteFile(path, content, 0600); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func (f *serviceFixture) blobPath() string {
	return filepath.Join(f.dir.String(), suprsafe.KeyBlobDir, suprsafe.KeyBlobName)
}

func TestSafeService_EncryptDecryptRoundTrip(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t, fixtureOptions{})

	contents := map[string][]byte{
		"notes.txt":  []byte("hello world"),
		"photo.jpg":  bytes.Repeat([]byte{0xfe, 0x01}, 4096),
		"empty.dat":  {},
		"report.pdf": []byte("pretend this is a pdf"),
	}
	for name, content := range contents {
		f.writeFile(t, name, content)
	}

	count, err := f.service.EncryptDirectory(f.dir, testPassword, testMainKey)
	if err != nil {
		t.Fatalf("EncryptDirectory() error = %v", err)
	}
	if count != len(contents) {
		t.Errorf("encrypted %d files, want %d", count, len(contents))
	}

	for name := range contents {
		base := filepath.Join(f.dir.String(), name)
		if _, err := os.Stat(base); !os.IsNotExist(err) {
			t.Errorf("plaintext %s still present after encryption", name)
		}
		for _, suffix := range []string{suprsafe.CipherSuffix, suprsafe.TagSuffix, suprsafe.NonceSuffix} {
			if _, err := os.Stat(base + suffix); err != nil {
				t.Errorf("artifact %s%s missing: %v", name, suffix, err)
			}
		}
	}
	if _, err := os.Stat(f.blobPath()); err != nil {
		t.Fatalf("wrapped-key blob missing: %v", err)
	}

	count, err = f.service.DecryptDirectory(f.dir, testPassword, testMainKey)
	if err != nil {
		t.Fatalf("DecryptDirectory() error = %v", err)
	}
	if count != len(contents) {
		t.Errorf("decrypted %d files, want %d", count, len(contents))
	}

	for name, want := range contents {
		got, err := os.ReadFile(filepath.Join(f.dir.String(), name))
		if err != nil {
			t.Errorf("restored %s missing: %v", name, err)
			continue
		}
		if !bytes.Equal(got, want) {
			t.Errorf("restored %s differs from the original", name)
		}
		for _, suffix := range []string{suprsafe.CipherSuffix, suprsafe.TagSuffix, suprsafe.NonceSuffix} {
			if _, err := os.Stat(filepath.Join(f.dir.String(), name+suffix)); !os.IsNotExist(err) {
				t.Errorf("artifact %s%s still present after decryption", name, suffix)
			}
		}
	}
	if _, err := os.Stat(f.blobPath()); !os.IsNotExist(err) {
		t.Error("wrapped-key blob still present after decryption")
	}
}

func TestSafeService_Encrypt_WrongPassword(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t, fixtureOptions{})
	f.writeFile(t, "notes.txt", []byte("hello"))

	_, err := f.service.EncryptDirectory(f.dir, "not the password", testMainKey)
	if !errors.Is(err, suprsafe.ErrAuthentication) {
		t.Errorf("EncryptDirectory() error = %v, want ErrAuthentication", err)
	}

	// Nothing happened to the plaintext.
	if _, err := os.Stat(filepath.Join(f.dir.String(), "notes.txt")); err != nil {
		t.Errorf("plaintext touched by failed encryption: %v", err)
	}
}

func TestSafeService_Encrypt_InvalidMainKey(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t, fixtureOptions{})
	f.writeFile(t, "notes.txt", []byte("hello"))

	_, err := f.service.EncryptDirectory(f.dir, testPassword, "short")
	if !errors.Is(err, suprsafe.ErrInvalidInput) {
		t.Errorf("EncryptDirectory() error = %v, want ErrInvalidInput", err)
	}
}

func TestSafeService_Encrypt_RefusesDoubleEncrypt(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t, fixtureOptions{})
	f.writeFile(t, "notes.txt", []byte("hello"))

	if _, err := f.service.EncryptDirectory(f.dir, testPassword, testMainKey); err != nil {
		t.Fatalf("EncryptDirectory() error = %v", err)
	}

	if _, err := f.service.EncryptDirectory(f.dir, testPassword, testMainKey); err == nil {
		t.Error("second EncryptDirectory() succeeded, want error while blob exists")
	}
}

func TestSafeService_Decrypt_WrongMainKey(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t, fixtureOptions{})
	f.writeFile(t, "notes.txt", []byte("hello"))

	if _, err := f.service.EncryptDirectory(f.dir, testPassword, testMainKey); err != nil {
		t.Fatalf("EncryptDirectory() error = %v", err)
	}

	_, err := f.service.DecryptDirectory(f.dir, testPassword, "abcdefghijklmnopqrstuvwxyz654321")
	if !errors.Is(err, suprsafe.ErrAuthentication) {
		t.Errorf("DecryptDirectory() error = %v, want ErrAuthentication", err)
	}

	// A failed unwrap must leave every artifact in place.
	base := filepath.Join(f.dir.String(), "notes.txt")
	for _, suffix := range []string{suprsafe.CipherSuffix, suprsafe.TagSuffix, suprsafe.NonceSuffix} {
		if _, err := os.Stat(base + suffix); err != nil {
			t.Errorf("artifact %s lost after failed decryption: %v", suffix, err)
		}
	}
}

func TestSafeService_Decrypt_MissingBlob(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t, fixtureOptions{})
	f.writeFile(t, "notes.txt.enc", []byte("orphaned ciphertext"))

	_, err := f.service.DecryptDirectory(f.dir, testPassword, testMainKey)
	if !errors.Is(err, suprsafe.ErrCorruptArtifact) {
		t.Errorf("DecryptDirectory() error = %v, want ErrCorruptArtifact", err)
	}
}

func TestSafeService_Decrypt_BlobRestoredFromEscrow(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t, fixtureOptions{withEscrow: true})
	f.writeFile(t, "notes.txt", []byte("hello world"))

	if _, err := f.service.EncryptDirectory(f.dir, testPassword, testMainKey); err != nil {
		t.Fatalf("EncryptDirectory() error = %v", err)
	}

	// Lose the local blob; the escrow copy should cover for it.
	if err := os.Remove(f.blobPath()); err != nil {
		t.Fatalf("removing blob: %v", err)
	}

	count, err := f.service.DecryptDirectory(f.dir, testPassword, testMainKey)
	if err != nil {
		t.Fatalf("DecryptDirectory() error = %v", err)
	}
	if count != 1 {
		t.Errorf("decrypted %d files, want 1", count)
	}

	got, err := os.ReadFile(filepath.Join(f.dir.String(), "notes.txt"))
	if err != nil {
		t.Fatalf("restored file missing: %v", err)
	}
	if !bytes.Equal(got, []byte("hello world")) {
		t.Error("restored file differs from the original")
	}
}

func TestSafeService_Encrypt_SurvivesEscrowFailure(t *testing.T) {
	t.Parallel()
	logger := &recordingLogger{}
	f := newServiceFixture(t, fixtureOptions{brokenEscrow: true, logger: logger})
	f.writeFile(t, "notes.txt", []byte("hello world"))

	// Escrow is a copy, not the primary: an unreachable vault degrades
	// the run to local-only, it does not fail it.
	count, err := f.service.EncryptDirectory(f.dir, testPassword, testMainKey)
	if err != nil {
		t.Fatalf("EncryptDirectory() error = %v", err)
	}
	if count != 1 {
		t.Errorf("encrypted %d files, want 1", count)
	}
	if _, err := os.Stat(f.blobPath()); err != nil {
		t.Errorf("local wrapped-key blob missing: %v", err)
	}

	warned := false
	for _, msg := range logger.warned() {
		if msg == "escrow push failed" {
			warned = true
		}
	}
	if !warned {
		t.Errorf("no warning logged for the failed escrow push, got %q", logger.warned())
	}

	// The local blob still carries the round trip.
	if _, err := f.service.DecryptDirectory(f.dir, testPassword, testMainKey); err != nil {
		t.Fatalf("DecryptDirectory() error = %v", err)
	}
}

func TestSafeService_Decrypt_EscrowFailureWithoutLocalBlob(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t, fixtureOptions{brokenEscrow: true})
	f.writeFile(t, "notes.txt", []byte("hello world"))

	if _, err := f.service.EncryptDirectory(f.dir, testPassword, testMainKey); err != nil {
		t.Fatalf("EncryptDirectory() error = %v", err)
	}
	if err := os.Remove(f.blobPath()); err != nil {
		t.Fatalf("removing blob: %v", err)
	}

	// With the local blob gone and the escrow unreachable there is no
	// key material left to decrypt with.
	_, err := f.service.DecryptDirectory(f.dir, testPassword, testMainKey)
	if !errors.Is(err, suprsafe.ErrCorruptArtifact) {
		t.Errorf("DecryptDirectory() error = %v, want ErrCorruptArtifact", err)
	}
}

func TestSafeService_LockoutWipesAndLocks(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t, fixtureOptions{lockoutEnabled: true})
	f.writeFile(t, "notes.txt", []byte("hello world"))

	if _, err := f.service.EncryptDirectory(f.dir, testPassword, testMainKey); err != nil {
		t.Fatalf("EncryptDirectory() error = %v", err)
	}

	// Two wrong attempts still leave the ciphertext alone.
	for i := 0; i < 2; i++ {
		_, err := f.service.DecryptDirectory(f.dir, "wrong password", testMainKey)
		if !errors.Is(err, suprsafe.ErrAuthentication) {
			t.Fatalf("attempt %d error = %v, want ErrAuthentication", i+1, err)
		}
	}
	if _, err := os.Stat(filepath.Join(f.dir.String(), "notes.txt.enc")); err != nil {
		t.Fatalf("ciphertext gone before the threshold: %v", err)
	}

	// The third wipes everything.
	_, err := f.service.DecryptDirectory(f.dir, "wrong password", testMainKey)
	if !errors.Is(err, suprsafe.ErrDirectoryLocked) {
		t.Fatalf("attempt 3 error = %v, want ErrDirectoryLocked", err)
	}

	for _, suffix := range []string{suprsafe.CipherSuffix, suprsafe.TagSuffix, suprsafe.NonceSuffix} {
		if _, err := os.Stat(filepath.Join(f.dir.String(), "notes.txt"+suffix)); !os.IsNotExist(err) {
			t.Errorf("artifact %s survived the wipe", suffix)
		}
	}
	if _, err := os.Stat(f.blobPath()); !os.IsNotExist(err) {
		t.Error("wrapped-key blob survived the wipe")
	}

	// Even the correct password is refused now; the data is gone for good.
	_, err = f.service.DecryptDirectory(f.dir, testPassword, testMainKey)
	if !errors.Is(err, suprsafe.ErrDirectoryLocked) {
		t.Errorf("post-wipe decrypt error = %v, want ErrDirectoryLocked", err)
	}
}

func TestSafeService_CorrectPasswordResetsAttempts(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t, fixtureOptions{lockoutEnabled: true})
	f.writeFile(t, "notes.txt", []byte("hello world"))

	if _, err := f.service.EncryptDirectory(f.dir, testPassword, testMainKey); err != nil {
		t.Fatalf("EncryptDirectory() error = %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := f.service.DecryptDirectory(f.dir, "wrong password", testMainKey); !errors.Is(err, suprsafe.ErrAuthentication) {
			t.Fatalf("attempt %d error = %v, want ErrAuthentication", i+1, err)
		}
	}

	// Success resets the counter; two more failures do not trip the wipe.
	if _, err := f.service.DecryptDirectory(f.dir, testPassword, testMainKey); err != nil {
		t.Fatalf("DecryptDirectory() error = %v", err)
	}
	if _, err := f.service.EncryptDirectory(f.dir, testPassword, testMainKey); err != nil {
		t.Fatalf("re-encrypting: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := f.service.DecryptDirectory(f.dir, "wrong password", testMainKey); !errors.Is(err, suprsafe.ErrAuthentication) {
			t.Fatalf("post-reset attempt %d error = %v, want ErrAuthentication", i+1, err)
		}
	}
	if _, err := os.Stat(filepath.Join(f.dir.String(), "notes.txt.enc")); err != nil {
		t.Errorf("ciphertext wiped despite counter reset: %v", err)
	}
}

func TestSafeService_History(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t, fixtureOptions{})
	f.writeFile(t, "notes.txt", []byte("hello"))

	if _, err := f.service.EncryptDirectory(f.dir, testPassword, testMainKey); err != nil {
		t.Fatalf("EncryptDirectory() error = %v", err)
	}
	if _, err := f.service.DecryptDirectory(f.dir, testPassword, testMainKey); err != nil {
		t.Fatalf("DecryptDirectory() error = %v", err)
	}

	ops, err := f.service.History(10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(ops) != 2 {
		t.Fatalf("History() returned %d operations, want 2", len(ops))
	}

	// Newest first.
	if ops[0].Operation != "decrypt" || ops[1].Operation != "encrypt" {
		t.Errorf("operations = %s, %s; want decrypt, encrypt", ops[0].Operation, ops[1].Operation)
	}
	for _, op := range ops {
		if op.Status != "success" {
			t.Errorf("operation %s status = %q, want success", op.Operation, op.Status)
		}
		if !op.Finished {
			t.Errorf("operation %s not marked finished", op.Operation)
		}
	}
}

func TestSafeService_Encrypt_SkipsSubdirectories(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t, fixtureOptions{})
	f.writeFile(t, "notes.txt", []byte("hello"))

	sub := filepath.Join(f.dir.String(), "nested")
	if err := os.MkdirAll(sub, 0700); err != nil {
		t.Fatalf("creating subdirectory: %v", err)
	}
	nestedPath := filepath.Join(sub, "deep.txt")
	if err := os.WriteFile(nestedPath, []byte("untouched"), 0600); err != nil {
		t.Fatalf("writing nested file: %v", err)
	}

	count, err := f.service.EncryptDirectory(f.dir, testPassword, testMainKey)
	if err != nil {
		t.Fatalf("EncryptDirectory() error = %v", err)
	}
	if count != 1 {
		t.Errorf("encrypted %d files, want 1", count)
	}
	if got, err := os.ReadFile(nestedPath); err != nil || !bytes.Equal(got, []byte("untouched")) {
		t.Errorf("nested file modified: %v", err)
	}
}
