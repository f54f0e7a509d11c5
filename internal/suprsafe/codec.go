package suprsafe

import "fmt"

// FileCodec applies the envelope cipher to whole files, producing the
// .enc/.enc.tag/.enc.nonce artifact set on encryption and reconstructing
// the original bytes on decryption.
//
// The codec never deletes anything. Erasing the superseded originals (or
// artifacts) is the caller's job, and only after the codec has reported
// success — that ordering is what prevents data loss on interruption.
type FileCodec struct {
	cipher Cipher
	fsmgr  FilesystemManager
	random RandomSource
	logger Logger
}

// NewFileCodec creates a FileCodec with the provided primitives.
func NewFileCodec(cipher Cipher, fsmgr FilesystemManager, random RandomSource, logger Logger) *FileCodec {
	return &FileCodec{
		cipher: cipher,
		fsmgr:  fsmgr,
		random: random,
		logger: logger,
	}
}

// EncryptFile reads the file's full contents, seals them under the
// session key with a fresh nonce, and writes the three artifact siblings.
// Success is reported only after all three writes complete; on any
// failure the partially written artifacts are removed and the source file
// is left untouched.
func (c *FileCodec) EncryptFile(path *Path, session *SessionKeyMaterial) (*EncryptedArtifact, error) {
	plaintext, err := c.fsmgr.ReadFile(path.String())
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path.String(), err)
	}

	nonce := make([]byte, NonceSize)
	if err := c.random.Read(nonce); err != nil {
		return nil, fmt.Errorf("generating file nonce: %w", err)
	}

	key, _, cleanup, err := session.Open()
	if err != nil {
		return nil, err
	}
	ciphertext, tag, err := c.cipher.Seal(key, nonce, plaintext)
	cleanup()
	if err != nil {
		return nil, fmt.Errorf("sealing %s: %w", path.String(), err)
	}

	artifact := NewEncryptedArtifact(path.String())
	writes := []struct {
		path string
		data []byte
	}{
		{artifact.CipherPath, ciphertext},
		{artifact.TagPath, tag},
		{artifact.NoncePath, nonce},
	}
	var written []string
	for _, w := range writes {
		if err := c.fsmgr.WriteFile(w.path, w.data, 0600); err != nil {
			c.removePartial(written)
			return nil, fmt.Errorf("writing %s: %w", w.path, err)
		}
		written = append(written, w.path)
	}

	c.logger.Debug("file encrypted", "path", path.String(), "size", len(plaintext))
	return artifact, nil
}

// DecryptFile reassembles the three artifact siblings and opens the
// envelope. A missing or mis-sized part is ErrCorruptArtifact; a tag
// mismatch (wrong main key, tampered data) is ErrAuthentication.
func (c *FileCodec) DecryptFile(artifact *EncryptedArtifact, session *SessionKeyMaterial) ([]byte, error) {
	for _, p := range []string{artifact.CipherPath, artifact.TagPath, artifact.NoncePath} {
		if !c.fsmgr.Exists(p) {
			return nil, fmt.Errorf("missing artifact part %s: %w", p, ErrCorruptArtifact)
		}
	}

	ciphertext, err := c.fsmgr.ReadFile(artifact.CipherPath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", artifact.CipherPath, err)
	}
	tag, err := c.fsmgr.ReadFile(artifact.TagPath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", artifact.TagPath, err)
	}
	nonce, err := c.fsmgr.ReadFile(artifact.NoncePath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", artifact.NoncePath, err)
	}

	if len(tag) != TagSize {
		return nil, fmt.Errorf("tag file %s has wrong size %d: %w", artifact.TagPath, len(tag), ErrCorruptArtifact)
	}
	if len(nonce) != NonceSize {
		return nil, fmt.Errorf("nonce file %s has wrong size %d: %w", artifact.NoncePath, len(nonce), ErrCorruptArtifact)
	}

	key, _, cleanup, err := session.Open()
	if err != nil {
		return nil, err
	}
	plaintext, err := c.cipher.Open(key, nonce, ciphertext, tag)
	cleanup()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", artifact.CipherPath, err)
	}

	c.logger.Debug("file decrypted", "path", artifact.OriginalPath, "size", len(plaintext))
	return plaintext, nil
}

// removePartial deletes artifact parts written before a failure. Best
// effort: the parts hold ciphertext only.
func (c *FileCodec) removePartial(paths []string) {
	for _, p := range paths {
		if err := c.fsmgr.Remove(p); err != nil {
			c.logger.Warn("could not remove partial artifact", "path", p, "error", err)
		}
	}
}
