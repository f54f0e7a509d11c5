package suprsafe

// Deriver turns a human-supplied password into a fixed-length key via a
// password-based key-derivation function. Deterministic for a fixed
// (password, salt) pair and intentionally slow.
type Deriver interface {
	// Derive returns length bytes derived from password and salt.
	// An empty password is rejected with ErrInvalidInput.
	Derive(password string, salt []byte, length int) ([]byte, error)
}

// Cipher performs authenticated symmetric encryption of a byte buffer.
// Implementations use AES-256-GCM. Nonce uniqueness per key is the
// caller's responsibility: reusing a nonce under the same key breaks
// the authenticity guarantees, it is a correctness violation.
type Cipher interface {
	// Seal encrypts plaintext under key and nonce, returning the
	// ciphertext and the authentication tag separately.
	Seal(key, nonce, plaintext []byte) (ciphertext, tag []byte, err error)

	// Open reverses Seal. It fails with ErrAuthentication if the tag does
	// not verify (tampered data or wrong key) and never returns partial
	// plaintext on failure.
	Open(key, nonce, ciphertext, tag []byte) ([]byte, error)
}
