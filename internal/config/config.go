package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// DefaultPromptTemplate is used when the config file does not carry one.
// {context} and {question} are substituted by the query pipeline.
const DefaultPromptTemplate = `You are a legal assistant. Answer only from the provided excerpts of legal codes.

Rules:
1. If the context is insufficient, answer "I don't know".
2. Do not invent facts or use outside knowledge.
3. Answer briefly.

Context:
{context}

Question: {question}

Answer:`

type LLMConfig struct {
	Provider       string `toml:"provider"`
	Model          string `toml:"model"`
	EmbeddingModel string `toml:"embedding_model"`
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
}

type IngestConfig struct {
	DataDir      string `toml:"data_dir"`
	MinPageChars int    `toml:"min_page_chars"`
	ChunkSize    int    `toml:"chunk_size"`
	ChunkOverlap int    `toml:"chunk_overlap"`
}

type StoreConfig struct {
	Backend    string `toml:"backend"`
	Path       string `toml:"path"`
	Collection string `toml:"collection"`
	QdrantHost string `toml:"qdrant_host"`
	QdrantPort int    `toml:"qdrant_port"`
	QdrantKey  string `toml:"qdrant_api_key"`
}

type QueryConfig struct {
	TopK             int    `toml:"top_k"`
	PromptTemplate   string `toml:"prompt_template"`
	Rerank           bool   `toml:"rerank"`
	RerankCandidates int    `toml:"rerank_candidates"`
}

type Config struct {
	LLM    LLMConfig    `toml:"llm"`
	Ingest IngestConfig `toml:"ingest"`
	Store  StoreConfig  `toml:"store"`
	Query  QueryConfig  `toml:"query"`
}

// Load reads a TOML config from path, falling back to defaults when the file
// does not exist, and applies environment overrides on top.
func Load(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
		}
	} else if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	applyDefaults(&cfg)
	applyEnv(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "openai"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gpt-4o-mini"
	}
	if cfg.LLM.EmbeddingModel == "" {
		cfg.LLM.EmbeddingModel = "text-embedding-3-small"
	}
	if cfg.Ingest.DataDir == "" {
		cfg.Ingest.DataDir = "data/laws"
	}
	if cfg.Ingest.MinPageChars == 0 {
		cfg.Ingest.MinPageChars = 50
	}
	if cfg.Ingest.ChunkSize == 0 {
		cfg.Ingest.ChunkSize = 1200
	}
	if cfg.Ingest.ChunkOverlap == 0 {
		cfg.Ingest.ChunkOverlap = 200
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "chromem"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "vector_db/legal_codes"
	}
	if cfg.Store.Collection == "" {
		cfg.Store.Collection = "legal_codes"
	}
	if cfg.Store.QdrantPort == 0 {
		cfg.Store.QdrantPort = 6334
	}
	if cfg.Query.TopK == 0 {
		cfg.Query.TopK = 5
	}
	if cfg.Query.PromptTemplate == "" {
		cfg.Query.PromptTemplate = DefaultPromptTemplate
	}
	if cfg.Query.RerankCandidates == 0 {
		cfg.Query.RerankCandidates = 20
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("LLM_EMBEDDING_MODEL"); v != "" {
		cfg.LLM.EmbeddingModel = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Ingest.DataDir = v
	}
	if v := os.Getenv("STORE_BACKEND"); v != "" {
		cfg.Store.Backend = v
	}
	if v := os.Getenv("STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("QDRANT_HOST"); v != "" {
		cfg.Store.QdrantHost = v
	}
	if v := os.Getenv("QDRANT_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Store.QdrantPort = p
		}
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv(providerKeyEnv(cfg.LLM.Provider))
	}
}

func providerKeyEnv(provider string) string {
	switch strings.ToLower(provider) {
	case "gemini":
		return "GEMINI_API_KEY"
	case "claude":
		return "ANTHROPIC_API_KEY"
	default:
		return "OPENAI_API_KEY"
	}
}

// Validate fails fast on a missing credential before any client is built.
// Ollama talks to a local server and needs no key.
func (c *Config) Validate() error {
	provider := strings.ToLower(c.LLM.Provider)
	if provider != "ollama" && c.LLM.APIKey == "" {
		return fmt.Errorf("API key for provider '%s' not found: set %s or llm.api_key", provider, providerKeyEnv(provider))
	}
	if c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		return fmt.Errorf("chunk_overlap (%d) must be smaller than chunk_size (%d)", c.Ingest.ChunkOverlap, c.Ingest.ChunkSize)
	}
	return nil
}
