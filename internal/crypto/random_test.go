package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateStateToken(t *testing.T) {
	token, err := GenerateStateToken(32)
	require.NoError(t, err)
	assert.Len(t, token, 32)

	for _, r := range token {
		assert.True(t, strings.ContainsRune(StateAlphabet, r), "unexpected rune %q", r)
	}

	// Each call generates a unique token
	token2, err := GenerateStateToken(32)
	require.NoError(t, err)
	assert.NotEqual(t, token, token2)
}

func TestGenerateStateTokenEnforcesMinimum(t *testing.T) {
	token, err := GenerateStateToken(8)
	require.NoError(t, err)
	assert.Len(t, token, MinStateLength)

	long, err := GenerateStateToken(48)
	require.NoError(t, err)
	assert.Len(t, long, 48)
}
