package suprsafe

import "errors"

// Sentinel errors for the failure classes callers need to distinguish.
// Everything else (filesystem trouble, store trouble) is wrapped with
// fmt.Errorf("...: %w", err) and surfaces as-is.
var (
	// ErrInvalidInput indicates an empty or malformed password or main key.
	ErrInvalidInput = errors.New("invalid input")

	// ErrAuthentication indicates a wrong password or main key: a derived
	// value did not match, or an authentication tag failed to verify.
	// Verification failures never yield partial plaintext.
	ErrAuthentication = errors.New("authentication failed")

	// ErrCorruptArtifact indicates a missing or truncated artifact: one of
	// the ciphertext/tag/nonce siblings is absent, or the wrapped-key blob
	// is too short to parse.
	ErrCorruptArtifact = errors.New("corrupt artifact")

	// ErrDirectoryLocked indicates the directory's lockout threshold was
	// exceeded in a previous session and its ciphertext has been wiped.
	ErrDirectoryLocked = errors.New("directory is locked")
)
