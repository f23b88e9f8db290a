package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/lexrag/internal/config"
)

func TestNewClientClaudeHasNoEmbedder(t *testing.T) {
	client, embedder, err := NewClient(context.Background(), config.LLMConfig{
		Provider: "claude",
		Model:    "claude-3-5-haiku-latest",
		APIKey:   "test-key",
	})

	require.NoError(t, err)
	assert.NotNil(t, client)
	// Claude has no embedding API; callers must fail fast before indexing.
	assert.Nil(t, embedder)
}

func TestNewClientOpenAI(t *testing.T) {
	client, embedder, err := NewClient(context.Background(), config.LLMConfig{
		Provider: "openai",
		Model:    "gpt-4o-mini",
		APIKey:   "test-key",
	})

	require.NoError(t, err)
	assert.NotNil(t, client)
	assert.NotNil(t, embedder)
}

func TestNewClientOllamaUsesOpenAICompatibleAPI(t *testing.T) {
	client, embedder, err := NewClient(context.Background(), config.LLMConfig{
		Provider: "ollama",
		Model:    "llama3",
	})

	require.NoError(t, err)
	assert.NotNil(t, client)
	assert.NotNil(t, embedder)
}

func TestNewClientUnsupportedProvider(t *testing.T) {
	_, _, err := NewClient(context.Background(), config.LLMConfig{Provider: "cohere"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported llm provider")
}
