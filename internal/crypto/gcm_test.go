package crypto

import (
	"bytes"
	"errors"
	"testing"

	"github.com/mixoploidy8031/suprsafe/internal/suprsafe"
)

func testKey() []byte {
	key := make([]byte, suprsafe.KeySize)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

func testNonce() []byte {
	nonce := make([]byte, suprsafe.NonceSize)
	for i := range nonce {
		nonce[i] = byte(0xa0 + i)
	}
	return nonce
}

func TestGCMCipher_RoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input []byte
	}{
		{name: "simple text", input: []byte("hello world")},
		{name: "empty", input: []byte{}},
		{name: "binary data", input: []byte{0x00, 0xff, 0x01, 0xfe}},
		{name: "large data", input: bytes.Repeat([]byte("abcdef"), 10000)},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := NewGCMCipher()

			ciphertext, tag, err := c.Seal(testKey(), testNonce(), tt.input)
			if err != nil {
				t.Fatalf("Seal() error = %v", err)
			}
			if len(tag) != suprsafe.TagSize {
				t.Errorf("tag is %d bytes, want %d", len(tag), suprsafe.TagSize)
			}
			if len(ciphertext) != len(tt.input) {
				t.Errorf("ciphertext is %d bytes, want %d", len(ciphertext), len(tt.input))
			}
			if len(tt.input) > 0 && bytes.Equal(ciphertext, tt.input) {
				t.Error("ciphertext is identical to plaintext")
			}

			plaintext, err := c.Open(testKey(), testNonce(), ciphertext, tag)
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			if !bytes.Equal(plaintext, tt.input) {
				t.Error("round trip did not recover the plaintext")
			}
		})
	}
}

func TestGCMCipher_Open_WrongKey(t *testing.T) {
	t.Parallel()
	c := NewGCMCipher()

	ciphertext, tag, err := c.Seal(testKey(), testNonce(), []byte("secret"))
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}

	wrongKey := testKey()
	wrongKey[0] ^= 0x01

	_, err = c.Open(wrongKey, testNonce(), ciphertext, tag)
	if !errors.Is(err, suprsafe.ErrAuthentication) {
		t.Errorf("Open() with wrong key error = %v, want ErrAuthentication", err)
	}
}

func TestGCMCipher_Open_TamperedCiphertext(t *testing.T) {
	t.Parallel()
	c := NewGCMCipher()

	ciphertext, tag, err := c.Seal(testKey(), testNonce(), []byte("secret"))
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}
	ciphertext[0] ^= 0x01

	_, err = c.Open(testKey(), testNonce(), ciphertext, tag)
	if !errors.Is(err, suprsafe.ErrAuthentication) {
		t.Errorf("Open() with tampered ciphertext error = %v, want ErrAuthentication", err)
	}
}

func TestGCMCipher_Open_TamperedTag(t *testing.T) {
	t.Parallel()
	c := NewGCMCipher()

	ciphertext, tag, err := c.Seal(testKey(), testNonce(), []byte("secret"))
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}
	tag[0] ^= 0x01

	_, err = c.Open(testKey(), testNonce(), ciphertext, tag)
	if !errors.Is(err, suprsafe.ErrAuthentication) {
		t.Errorf("Open() with tampered tag error = %v, want ErrAuthentication", err)
	}
}

func TestGCMCipher_Open_WrongTagSize(t *testing.T) {
	t.Parallel()
	c := NewGCMCipher()

	ciphertext, _, err := c.Seal(testKey(), testNonce(), []byte("secret"))
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}

	_, err = c.Open(testKey(), testNonce(), ciphertext, []byte("short"))
	if !errors.Is(err, suprsafe.ErrCorruptArtifact) {
		t.Errorf("Open() with short tag error = %v, want ErrCorruptArtifact", err)
	}
}

func TestGCMCipher_WrongKeySize(t *testing.T) {
	t.Parallel()
	c := NewGCMCipher()

	_, _, err := c.Seal([]byte("too short"), testNonce(), []byte("secret"))
	if !errors.Is(err, suprsafe.ErrInvalidInput) {
		t.Errorf("Seal() with short key error = %v, want ErrInvalidInput", err)
	}
}
