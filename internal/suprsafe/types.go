package suprsafe

import (
	"fmt"
	"time"
)

// Sizes of the fixed-length pieces of the on-disk formats.
const (
	KeySize   = 32 // AES-256
	NonceSize = 12 // standard GCM nonce
	TagSize   = 16 // GCM authentication tag
	SaltSize  = 16
	IVSize    = 12
)

// Artifact file suffixes. Every encrypted file is persisted as three
// siblings: <name>.enc, <name>.enc.tag, <name>.enc.nonce.
const (
	CipherSuffix = ".enc"
	TagSuffix    = ".enc.tag"
	NonceSuffix  = ".enc.nonce"
)

// KeyBlobDir and KeyBlobName locate the wrapped-key blob inside a
// protected directory.
const (
	KeyBlobDir  = "keys_ivs"
	KeyBlobName = "encrypted_keys_ivs.bin"
)

// AccountRecord is a persisted derived-password value. It never contains
// the plaintext password, only the random salt and the PBKDF2 output.
type AccountRecord struct {
	Salt    []byte
	Derived []byte
}

// Marshal serializes the record as salt followed by the derived bytes.
func (r *AccountRecord) Marshal() []byte {
	out := make([]byte, 0, len(r.Salt)+len(r.Derived))
	out = append(out, r.Salt...)
	out = append(out, r.Derived...)
	return out
}

// UnmarshalAccountRecord parses a record written by Marshal.
func UnmarshalAccountRecord(data []byte) (*AccountRecord, error) {
	if len(data) <= SaltSize {
		return nil, fmt.Errorf("account record too short (%d bytes): %w", len(data), ErrCorruptArtifact)
	}
	return &AccountRecord{
		Salt:    data[:SaltSize],
		Derived: data[SaltSize:],
	}, nil
}

// WrappedKeyBlob is the session key material sealed under a key derived
// from the main key. It is the durable link between an encryption run and
// a later decryption run: the same main key deterministically unwraps it.
type WrappedKeyBlob struct {
	Salt       []byte // salt for deriving the wrapping key from the main key
	Nonce      []byte // GCM nonce for the wrap
	Ciphertext []byte // sealed key+IV
	Tag        []byte // GCM tag for the wrap
}

// Marshal serializes the blob as salt ‖ nonce ‖ ciphertext ‖ tag.
func (b *WrappedKeyBlob) Marshal() []byte {
	out := make([]byte, 0, len(b.Salt)+len(b.Nonce)+len(b.Ciphertext)+len(b.Tag))
	out = append(out, b.Salt...)
	out = append(out, b.Nonce...)
	out = append(out, b.Ciphertext...)
	out = append(out, b.Tag...)
	return out
}

// UnmarshalWrappedKeyBlob parses a blob written by Marshal. The salt,
// nonce and tag are fixed-length; whatever remains between them is the
// ciphertext.
func UnmarshalWrappedKeyBlob(data []byte) (*WrappedKeyBlob, error) {
	min := SaltSize + NonceSize + TagSize
	if len(data) <= min {
		return nil, fmt.Errorf("wrapped key blob too short (%d bytes): %w", len(data), ErrCorruptArtifact)
	}
	return &WrappedKeyBlob{
		Salt:       data[:SaltSize],
		Nonce:      data[SaltSize : SaltSize+NonceSize],
		Ciphertext: data[SaltSize+NonceSize : len(data)-TagSize],
		Tag:        data[len(data)-TagSize:],
	}, nil
}

// EncryptedArtifact names the three sibling files produced for one
// original file. All three must be present and mutually consistent for
// decryption to succeed.
type EncryptedArtifact struct {
	// OriginalPath is the plaintext file's path (no suffix).
	OriginalPath string
	CipherPath   string
	TagPath      string
	NoncePath    string
}

// NewEncryptedArtifact derives the three artifact paths from the
// original file path.
func NewEncryptedArtifact(originalPath string) *EncryptedArtifact {
	return &EncryptedArtifact{
		OriginalPath: originalPath,
		CipherPath:   originalPath + CipherSuffix,
		TagPath:      originalPath + TagSuffix,
		NoncePath:    originalPath + NonceSuffix,
	}
}

// ArtifactForCipherPath builds an EncryptedArtifact from the path of a
// <name>.enc file found on disk.
func ArtifactForCipherPath(cipherPath string) *EncryptedArtifact {
	original := cipherPath[:len(cipherPath)-len(CipherSuffix)]
	return NewEncryptedArtifact(original)
}

// Directory is a protected directory registered in the store.
type Directory struct {
	ID        string
	Path      string
	CreatedAt time.Time
}

// Operation is one recorded encrypt/decrypt/wipe run.
type Operation struct {
	ID          int64
	DirectoryID string
	Operation   string
	Status      string // "success" or "error"
	StartedAt   time.Time
	FinishedAt  time.Time
	Finished    bool
}
