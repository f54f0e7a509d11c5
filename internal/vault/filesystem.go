package vault

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mixoploidy8031/suprsafe/internal/suprsafe"
)

// FileSystemVault is a filesystem-based implementation of the
// EscrowVault interface, for escrowing to a mounted backup drive or a
// synced directory. Blobs are stored as:
//
//	<root>/
//	  <directoryID>/
//	    <name>
//
// Every blob the vault holds is ciphertext: the wrapped-key blob is
// sealed under the main key and the account records are derived values.
type FileSystemVault struct {
	name string
	root string
}

// NewFileSystemVault creates a filesystem vault rooted at the given path.
func NewFileSystemVault(name, root string) (*FileSystemVault, error) {
	if err := os.MkdirAll(root, 0700); err != nil {
		return nil, fmt.Errorf("failed to create vault root: %w", err)
	}
	return &FileSystemVault{name: name, root: root}, nil
}

// PutBlob stores a named blob for a directory, overwriting any previous
// blob of the same name.
func (v *FileSystemVault) PutBlob(directoryID string, name string, r io.Reader, size int64) error {
	dir := filepath.Join(v.root, directoryID)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create blob directory: %w", err)
	}
	return v.writeFile(filepath.Join(dir, name), r, size)
}

// GetBlob retrieves a named blob for a directory and writes it to w.
func (v *FileSystemVault) GetBlob(directoryID string, name string, w io.Writer) error {
	srcPath := filepath.Join(v.root, directoryID, name)
	f, err := os.Open(srcPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("blob not found: %s/%s", directoryID, name)
		}
		return fmt.Errorf("failed to open blob: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read blob: %w", err)
	}
	return nil
}

// ValidateSetup verifies that the vault root is accessible.
func (v *FileSystemVault) ValidateSetup() error {
	info, err := os.Stat(v.root)
	if err != nil {
		return fmt.Errorf("vault root not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("vault root is not a directory: %s", v.root)
	}
	return nil
}

// writeFile writes data from r to the specified path using atomic write
// (temp file + rename).
func (v *FileSystemVault) writeFile(destPath string, r io.Reader, expectedSize int64) error {
	// Create temp file in the same directory to ensure atomic rename works
	dir := filepath.Dir(destPath)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmpFile, r)
	if err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if written != expectedSize {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", expectedSize, written)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// Compile-time check that FileSystemVault implements the interface.
var _ suprsafe.EscrowVault = (*FileSystemVault)(nil)
