package crypto

import (
	"strings"
	"testing"

	"github.com/mixoploidy8031/suprsafe/internal/suprsafe"
)

func TestGenerateMainKey(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		key, err := GenerateMainKey()
		if err != nil {
			t.Fatalf("GenerateMainKey() error = %v", err)
		}
		if len(key) != suprsafe.MainKeySize {
			t.Fatalf("key is %d characters, want %d", len(key), suprsafe.MainKeySize)
		}
		for _, r := range key {
			if !strings.ContainsRune(mainKeyAlphabet, r) {
				t.Fatalf("key contains %q, outside the alphabet", r)
			}
		}
		if err := suprsafe.ValidateMainKey(key); err != nil {
			t.Fatalf("generated key fails validation: %v", err)
		}
		if seen[key] {
			t.Fatal("generated the same key twice")
		}
		seen[key] = true
	}
}
