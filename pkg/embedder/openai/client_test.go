package openai

import (
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_Defaults(t *testing.T) {
	c, err := NewClient(&Config{APIKey: "test-key"})
	require.NoError(t, err)

	assert.Equal(t, openai.SmallEmbedding3, c.model)
	assert.Equal(t, 1536, c.Dimensions())
}

func TestNewClient_CustomModel(t *testing.T) {
	c, err := NewClient(&Config{
		APIKey:     "test-key",
		Model:      "text-embedding-3-large",
		Dimensions: 3072,
	})
	require.NoError(t, err)

	assert.Equal(t, openai.EmbeddingModel("text-embedding-3-large"), c.model)
	assert.Equal(t, 3072, c.Dimensions())
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient(&Config{})
	assert.Error(t, err)
}
