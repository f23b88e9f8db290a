package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/agenthands/lexrag/internal/config"
	"github.com/agenthands/lexrag/internal/ingest"
	"github.com/agenthands/lexrag/internal/llm"
	"github.com/agenthands/lexrag/internal/rag"
	"github.com/agenthands/lexrag/internal/store"
)

// sanityQuery probes the freshly built index at the end of the run.
const sanityQuery = "administrative offence"

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, using environment")
	}

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.toml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()
	llmClient, embedderClient, err := llm.NewClient(ctx, cfg.LLM)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize LLM client")
	}
	if embedderClient == nil {
		log.Fatal().Str("provider", cfg.LLM.Provider).Msg("provider has no embedding support, cannot index")
	}

	st, err := store.New(cfg.Store)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize vector store")
	}
	defer st.Close()

	loader := ingest.NewLoader(cfg.Ingest.DataDir, cfg.Ingest.MinPageChars, log)
	pages, err := loader.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("ingestion failed")
	}
	if len(pages) == 0 {
		log.Error().Msg("no documents were loaded, nothing to index")
		os.Exit(1)
	}
	log.Info().Int("pages", len(pages)).Msg("document pages ready for chunking")

	chunker := ingest.NewChunker(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	chunks := chunker.Split(pages)
	log.Info().Int("chunks", len(chunks)).Msg("split into chunks")

	pipeline := rag.NewPipeline(llmClient, embedderClient, st, cfg.Query.PromptTemplate, log)
	if err := pipeline.Index(ctx, chunks); err != nil {
		log.Fatal().Err(err).Msg("indexing failed")
	}
	log.Info().Int("vectors", len(chunks)).Str("path", cfg.Store.Path).Msg("stored vectors")

	// Sanity search against the new index.
	vector, err := embedderClient.Embed(ctx, sanityQuery)
	if err != nil {
		log.Warn().Err(err).Msg("sanity search failed")
		return
	}
	hits, err := st.Search(ctx, vector, 3)
	if err != nil {
		log.Warn().Err(err).Msg("sanity search failed")
		return
	}
	names := make([]string, 0, len(hits))
	for _, hit := range hits {
		names = append(names, hit.Chunk.Metadata.DocumentName)
	}
	log.Info().Strs("documents", names).Msg("sanity search results")
}
