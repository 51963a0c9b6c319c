package main

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrontendEmbedded(t *testing.T) {
	sub, err := fs.Sub(frontendFiles, "frontend")
	require.NoError(t, err)

	data, err := fs.ReadFile(sub, "index.html")
	require.NoError(t, err)
	assert.Contains(t, string(data), "Pulse Analysis")
	assert.Contains(t, string(data), "/api/analyze")
}
