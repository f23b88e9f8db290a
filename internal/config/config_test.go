package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"LLM_PROVIDER", "LLM_MODEL", "LLM_EMBEDDING_MODEL", "LLM_API_KEY", "LLM_BASE_URL",
		"DATA_DIR", "STORE_BACKEND", "STORE_PATH", "QDRANT_HOST", "QDRANT_PORT",
		"OPENAI_API_KEY", "GEMINI_API_KEY", "ANTHROPIC_API_KEY",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))

	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, "text-embedding-3-small", cfg.LLM.EmbeddingModel)
	assert.Equal(t, 50, cfg.Ingest.MinPageChars)
	assert.Equal(t, 1200, cfg.Ingest.ChunkSize)
	assert.Equal(t, 200, cfg.Ingest.ChunkOverlap)
	assert.Equal(t, "chromem", cfg.Store.Backend)
	assert.Equal(t, 5, cfg.Query.TopK)
	assert.Contains(t, cfg.Query.PromptTemplate, "{context}")
	assert.Contains(t, cfg.Query.PromptTemplate, "{question}")
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[llm]
provider = "gemini"
model = "gemini-2.0-flash"

[store]
backend = "qdrant"
qdrant_host = "qdrant.internal"

[query]
top_k = 3
rerank = true
`), 0o644))

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "gemini-2.0-flash", cfg.LLM.Model)
	assert.Equal(t, "qdrant", cfg.Store.Backend)
	assert.Equal(t, "qdrant.internal", cfg.Store.QdrantHost)
	assert.Equal(t, 6334, cfg.Store.QdrantPort)
	assert.Equal(t, 3, cfg.Query.TopK)
	assert.True(t, cfg.Query.Rerank)
}

func TestLoadBadTOML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("not = [valid"), 0o644))

	_, err := Load(path)

	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_PROVIDER", "gemini")
	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("STORE_BACKEND", "qdrant")
	t.Setenv("QDRANT_PORT", "7334")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))

	require.NoError(t, err)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "g-key", cfg.LLM.APIKey)
	assert.Equal(t, "qdrant", cfg.Store.Backend)
	assert.Equal(t, 7334, cfg.Store.QdrantPort)
}

func TestValidateMissingKey(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestValidateOllamaNeedsNoKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_PROVIDER", "ollama")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)

	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsOversizedOverlap(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "key")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	cfg.Ingest.ChunkOverlap = cfg.Ingest.ChunkSize

	assert.Error(t, cfg.Validate())
}
