package canonicalize_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashintel/hash-sub007/pkg/canonicalize"
)

func TestJCSSortsKeysRegardlessOfInputOrder(t *testing.T) {
	a := map[string]any{"b": 1, "a": 2}
	b := map[string]any{"a": 2, "b": 1}

	ca, err := canonicalize.JCS(a)
	require.NoError(t, err)
	cb, err := canonicalize.JCS(b)
	require.NoError(t, err)

	assert.Equal(t, string(ca), string(cb))
	assert.Equal(t, `{"a":2,"b":1}`, string(ca))
}

func TestHashIsDeterministic(t *testing.T) {
	v := struct {
		Name    string `json:"name"`
		Version int    `json:"version"`
	}{Name: "Person", Version: 1}

	h1, err := canonicalize.Hash(v)
	require.NoError(t, err)
	h2, err := canonicalize.Hash(v)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Contains(t, h1, "sha256:")
}

func TestEqualIgnoresKeyOrder(t *testing.T) {
	eq, err := canonicalize.Equal(
		map[string]any{"x": 1, "y": 2},
		map[string]any{"y": 2, "x": 1},
	)
	require.NoError(t, err)
	assert.True(t, eq)

	eq, err = canonicalize.Equal(
		map[string]any{"x": 1},
		map[string]any{"x": 2},
	)
	require.NoError(t, err)
	assert.False(t, eq)
}
