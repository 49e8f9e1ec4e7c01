package crypto

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// StateAlphabet is the character set OAuth state tokens are drawn from.
const StateAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// MinStateLength keeps state tokens at roughly 190 bits of entropy.
const MinStateLength = 32

// GenerateStateToken returns a token of the given length where every
// character is selected uniformly from StateAlphabet using crypto/rand.
// Lengths below MinStateLength are raised to it.
func GenerateStateToken(length int) (string, error) {
	if length < MinStateLength {
		length = MinStateLength
	}

	max := big.NewInt(int64(len(StateAlphabet)))
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate random index: %w", err)
		}
		b[i] = StateAlphabet[n.Int64()]
	}
	return string(b), nil
}
