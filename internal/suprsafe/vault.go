package suprsafe

import "io"

// EscrowVault provides an offsite copy of the small secrets a directory
// cannot be decrypted without: the wrapped-key blob and the account
// records. The vault holds ciphertext only — losing the vault loses
// nothing, and reading it without the main key yields nothing.
// All operations stream through io.Reader/io.Writer.
type EscrowVault interface {
	// PutBlob stores a named blob for a directory. Overwrites any
	// previous blob of the same name.
	PutBlob(directoryID string, name string, r io.Reader, size int64) error

	// GetBlob retrieves a named blob for a directory and writes it to w.
	GetBlob(directoryID string, name string, w io.Writer) error

	// ValidateSetup verifies that the vault is accessible and properly
	// configured.
	ValidateSetup() error
}
