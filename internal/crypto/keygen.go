package crypto

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/mixoploidy8031/suprsafe/internal/suprsafe"
)

const mainKeyAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateMainKey produces a uniformly random 32-character alphanumeric
// main key. Uses rejection-free sampling via crypto/rand.Int so every
// character is drawn uniformly from the alphabet.
func GenerateMainKey() (string, error) {
	max := big.NewInt(int64(len(mainKeyAlphabet)))
	out := make([]byte, suprsafe.MainKeySize)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generating main key: %w", err)
		}
		out[i] = mainKeyAlphabet[n.Int64()]
	}
	return string(out), nil
}
