package vault

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/mixoploidy8031/suprsafe/internal/suprsafe"
)

// MemoryVault is an in-memory implementation of the EscrowVault
// interface. Used in tests and as a null backend.
type MemoryVault struct {
	name string

	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryVault creates an empty in-memory vault.
func NewMemoryVault(name string) *MemoryVault {
	return &MemoryVault{
		name:  name,
		blobs: make(map[string][]byte),
	}
}

// PutBlob stores a named blob for a directory.
func (v *MemoryVault) PutBlob(directoryID string, name string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading blob: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.blobs[blobKey(directoryID, name)] = data
	return nil
}

// GetBlob retrieves a named blob for a directory and writes it to w.
func (v *MemoryVault) GetBlob(directoryID string, name string, w io.Writer) error {
	v.mu.RLock()
	data, ok := v.blobs[blobKey(directoryID, name)]
	v.mu.RUnlock()
	if !ok {
		return fmt.Errorf("blob not found: %s/%s", directoryID, name)
	}

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("writing blob: %w", err)
	}
	return nil
}

// ValidateSetup always succeeds for the in-memory vault.
func (v *MemoryVault) ValidateSetup() error {
	return nil
}

func blobKey(directoryID, name string) string {
	return directoryID + "/" + name
}

// Compile-time check that MemoryVault implements the interface.
var _ suprsafe.EscrowVault = (*MemoryVault)(nil)
