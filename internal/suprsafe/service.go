package suprsafe

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
)

// MainKeySize is the required length of the main key: a 32-character
// alphanumeric secret, distinct from the account password.
const MainKeySize = 32

// ValidateMainKey rejects main keys that are not 32 alphanumeric
// characters before any derivation work is spent on them.
func ValidateMainKey(mainKey string) error {
	if len(mainKey) != MainKeySize {
		return fmt.Errorf("main key must be %d characters, got %d: %w", MainKeySize, len(mainKey), ErrInvalidInput)
	}
	for _, r := range mainKey {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		default:
			return fmt.Errorf("main key must be alphanumeric: %w", ErrInvalidInput)
		}
	}
	return nil
}

// SafeService is the orchestration layer that coordinates the gate, the
// lockout guard, the key vault and the file codec to run the high-level
// encrypt and decrypt flows needed by the CLI.
type SafeService struct {
	store    Store
	escrow   EscrowVault // optional; nil disables offsite copies
	fsmgr    FilesystemManager
	eraser   Eraser
	gate     *AccountGate
	guard    *LockoutGuard
	keyvault *KeyVault
	codec    *FileCodec
	logger   Logger
}

// NewSafeService creates a SafeService with the provided dependencies.
// escrow may be nil when no escrow vault is configured.
func NewSafeService(store Store, escrow EscrowVault, fsmgr FilesystemManager, eraser Eraser, gate *AccountGate, guard *LockoutGuard, keyvault *KeyVault, codec *FileCodec, logger Logger) *SafeService {
	return &SafeService{
		store:    store,
		escrow:   escrow,
		fsmgr:    fsmgr,
		eraser:   eraser,
		gate:     gate,
		guard:    guard,
		keyvault: keyvault,
		codec:    codec,
		logger:   logger,
	}
}

// EncryptDirectory authenticates, generates fresh session key material,
// wraps it under the main key, encrypts every regular file directly under
// dir, and securely erases the plaintext originals. Returns the number of
// files encrypted.
func (s *SafeService) EncryptDirectory(dir *Path, password, mainKey string) (int, error) {
	if !dir.IsDir() {
		return 0, fmt.Errorf("path is not a directory: %s", dir.String())
	}
	if err := ValidateMainKey(mainKey); err != nil {
		return 0, err
	}

	d, err := s.store.RegisterDirectory(dir.String())
	if err != nil {
		return 0, fmt.Errorf("registering directory: %w", err)
	}
	if err := s.authenticate(dir, d, password); err != nil {
		return 0, err
	}

	blobPath := s.keyBlobPath(dir)
	if s.fsmgr.Exists(blobPath) {
		return 0, fmt.Errorf("directory already holds a wrapped key blob, decrypt it first: %s", dir.String())
	}

	op, err := s.store.CreateOperation(d.ID, "encrypt")
	if err != nil {
		return 0, fmt.Errorf("recording operation: %w", err)
	}
	status := "error"
	defer func() { s.finishOperation(op.ID, status) }()

	session, err := s.keyvault.CreateSession()
	if err != nil {
		return 0, err
	}
	defer session.Destroy()

	blob, err := s.keyvault.Wrap(session, mainKey)
	if err != nil {
		return 0, err
	}
	if err := s.fsmgr.WriteFile(blobPath, blob.Marshal(), 0600); err != nil {
		return 0, fmt.Errorf("persisting wrapped key blob: %w", err)
	}
	s.escrowPush(d.ID, KeyBlobName, blob.Marshal())

	files, err := s.fsmgr.FindFiles(dir, false)
	if err != nil {
		return 0, fmt.Errorf("listing directory: %w", err)
	}

	count := 0
	for _, f := range files {
		if f.IsArtifact() {
			continue
		}
		if _, err := s.codec.EncryptFile(f, session); err != nil {
			return count, err
		}
		// The artifact set is complete on disk; the plaintext original
		// can now be destroyed.
		if err := s.eraser.Erase(f.String()); err != nil {
			return count, fmt.Errorf("erasing original %s: %w", f.String(), err)
		}
		count++
	}

	status = "success"
	s.logger.Info("directory encrypted", "directory", dir.String(), "files", count)
	return count, nil
}

// DecryptDirectory authenticates (lockout guard intercepting failures),
// unwraps the session key material with the main key, reconstructs every
// original file, and securely erases the artifact sets and the blob.
// Returns the number of files decrypted.
func (s *SafeService) DecryptDirectory(dir *Path, password, mainKey string) (int, error) {
	if !dir.IsDir() {
		return 0, fmt.Errorf("path is not a directory: %s", dir.String())
	}
	if err := ValidateMainKey(mainKey); err != nil {
		return 0, err
	}

	d, err := s.store.RegisterDirectory(dir.String())
	if err != nil {
		return 0, fmt.Errorf("registering directory: %w", err)
	}
	if err := s.authenticate(dir, d, password); err != nil {
		return 0, err
	}

	blobPath := s.keyBlobPath(dir)
	if !s.fsmgr.Exists(blobPath) {
		if !s.escrowPull(d.ID, KeyBlobName, blobPath) {
			return 0, fmt.Errorf("no wrapped key blob found at %s: %w", blobPath, ErrCorruptArtifact)
		}
	}

	op, err := s.store.CreateOperation(d.ID, "decrypt")
	if err != nil {
		return 0, fmt.Errorf("recording operation: %w", err)
	}
	status := "error"
	defer func() { s.finishOperation(op.ID, status) }()

	blobData, err := s.fsmgr.ReadFile(blobPath)
	if err != nil {
		return 0, fmt.Errorf("reading wrapped key blob: %w", err)
	}
	blob, err := UnmarshalWrappedKeyBlob(blobData)
	if err != nil {
		return 0, err
	}
	session, err := s.keyvault.Unwrap(blob, mainKey)
	if err != nil {
		return 0, err
	}
	defer session.Destroy()

	files, err := s.fsmgr.FindFiles(dir, false)
	if err != nil {
		return 0, fmt.Errorf("listing directory: %w", err)
	}

	count := 0
	for _, f := range files {
		if !strings.HasSuffix(f.String(), CipherSuffix) {
			continue
		}
		artifact := ArtifactForCipherPath(f.String())
		plaintext, err := s.codec.DecryptFile(artifact, session)
		if err != nil {
			return count, err
		}
		if err := s.fsmgr.WriteFile(artifact.OriginalPath, plaintext, 0600); err != nil {
			return count, fmt.Errorf("writing %s: %w", artifact.OriginalPath, err)
		}
		// The plaintext is back; the stale ciphertext can go.
		for _, p := range []string{artifact.CipherPath, artifact.TagPath, artifact.NoncePath} {
			if err := s.eraser.Erase(p); err != nil {
				return count, fmt.Errorf("erasing artifact %s: %w", p, err)
			}
		}
		count++
	}

	if err := s.eraser.Erase(blobPath); err != nil {
		return count, fmt.Errorf("erasing wrapped key blob: %w", err)
	}
	// The keys_ivs directory is empty now; removal failure is harmless.
	s.fsmgr.Remove(filepath.Join(dir.String(), KeyBlobDir))

	status = "success"
	s.logger.Info("directory decrypted", "directory", dir.String(), "files", count)
	return count, nil
}

// History returns the most recent recorded operations, newest first.
func (s *SafeService) History(limit int) ([]*Operation, error) {
	return s.store.ListOperations(limit)
}

// authenticate runs the account gate with the lockout guard intercepting
// failures. A wrong password increments the per-directory counter and may
// trigger the destructive wipe; a correct one resets it.
func (s *SafeService) authenticate(dir *Path, d *Directory, password string) error {
	if err := s.guard.CheckActive(d.ID); err != nil {
		return err
	}

	ok, err := s.gate.Verify(password)
	if err != nil {
		return err
	}
	if !ok {
		res, ferr := s.guard.RecordFailure(dir, d.ID)
		if ferr != nil {
			return ferr
		}
		if res.Locked {
			s.recordWipe(d.ID)
			return fmt.Errorf("too many failed attempts, %d ciphertext file(s) wiped: %w", res.Wiped, ErrDirectoryLocked)
		}
		if s.guard.Enabled() {
			return fmt.Errorf("wrong account password, %d attempt(s) remaining: %w", res.Remaining, ErrAuthentication)
		}
		return fmt.Errorf("wrong account password: %w", ErrAuthentication)
	}

	return s.guard.RecordSuccess(d.ID)
}

// recordWipe logs the destructive wipe in the operation history.
func (s *SafeService) recordWipe(directoryID string) {
	op, err := s.store.CreateOperation(directoryID, "wipe")
	if err != nil {
		s.logger.Warn("could not record wipe operation", "error", err)
		return
	}
	s.finishOperation(op.ID, "success")
}

func (s *SafeService) finishOperation(id int64, status string) {
	if err := s.store.FinishOperation(id, status); err != nil {
		s.logger.Warn("could not finish operation record", "id", id, "error", err)
	}
}

func (s *SafeService) keyBlobPath(dir *Path) string {
	return filepath.Join(dir.String(), KeyBlobDir, KeyBlobName)
}

// escrowPush copies a blob to the escrow vault. Escrow is a copy, not
// the primary: failure is logged and the run continues.
func (s *SafeService) escrowPush(directoryID, name string, data []byte) {
	if s.escrow == nil {
		return
	}
	if err := s.escrow.PutBlob(directoryID, name, bytes.NewReader(data), int64(len(data))); err != nil {
		s.logger.Warn("escrow push failed", "name", name, "error", err)
		return
	}
	s.logger.Debug("escrow push complete", "name", name)
}

// escrowPull tries to restore a blob from the escrow vault, returning
// true if the file was written.
func (s *SafeService) escrowPull(directoryID, name, destPath string) bool {
	if s.escrow == nil {
		return false
	}
	var buf bytes.Buffer
	if err := s.escrow.GetBlob(directoryID, name, &buf); err != nil {
		s.logger.Warn("escrow pull failed", "name", name, "error", err)
		return false
	}
	if err := s.fsmgr.WriteFile(destPath, buf.Bytes(), 0600); err != nil {
		s.logger.Warn("restoring blob from escrow failed", "path", destPath, "error", err)
		return false
	}
	s.logger.Info("wrapped key blob restored from escrow", "path", destPath)
	return true
}
