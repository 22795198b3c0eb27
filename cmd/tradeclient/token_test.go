package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitOperatorToken_ToWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, emitOperatorToken("", "tok.en.value", &buf))
	assert.Equal(t, "operator token: tok.en.value\n", buf.String())
}

func TestEmitOperatorToken_ToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "operator.token")

	var buf bytes.Buffer
	require.NoError(t, emitOperatorToken(path, "tok.en.value", &buf))
	assert.Empty(t, buf.String())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "tok.en.value\n", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
