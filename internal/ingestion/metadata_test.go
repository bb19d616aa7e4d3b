package ingestion

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadata_JSONRoundTrip(t *testing.T) {
	metadata := &Metadata{
		Kind:      "url",
		Ref:       "https://example.com/about",
		Platform:  "shopify",
		Timestamp: "2024-01-01T00:00:00Z",
		Hash:      "abcd1234",
		Chars:     42,
		Truncated: true,
	}

	jsonBytes, err := metadata.ToJSON()
	require.NoError(t, err)

	var unmarshaled Metadata
	require.NoError(t, json.Unmarshal(jsonBytes, &unmarshaled))
	assert.Equal(t, *metadata, unmarshaled)
}

func TestComputeHash(t *testing.T) {
	hash1 := computeHash("test content")
	hash2 := computeHash("different content")

	assert.Len(t, hash1, 64)
	assert.NotEqual(t, hash1, hash2)
	assert.Equal(t, hash1, computeHash("test content"))
}

func TestNewMetadata(t *testing.T) {
	metadata := NewMetadata("file", "menu.txt", "crème brûlée")

	assert.Equal(t, "file", metadata.Kind)
	assert.Equal(t, "menu.txt", metadata.Ref)
	assert.Equal(t, 12, metadata.Chars)
	assert.Equal(t, computeHash("crème brûlée"), metadata.Hash)

	_, err := time.Parse(time.RFC3339, metadata.Timestamp)
	assert.NoError(t, err)
}
