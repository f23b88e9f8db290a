package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/agenthands/lexrag/internal/config"
	"github.com/agenthands/lexrag/internal/llm"
	"github.com/agenthands/lexrag/internal/rag"
	"github.com/agenthands/lexrag/internal/server"
	"github.com/agenthands/lexrag/internal/store"
)

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

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
		log.Fatal().Str("provider", cfg.LLM.Provider).Msg("provider has no embedding support, queries cannot be served")
	}

	st, err := store.New(cfg.Store)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize vector store")
	}
	defer st.Close()

	pipeline := rag.NewPipeline(llmClient, embedderClient, st, cfg.Query.PromptTemplate, log)
	if cfg.Query.Rerank {
		pipeline = pipeline.WithReranker(llm.NewSimpleLLMReranker(llmClient), cfg.Query.RerankCandidates)
	}

	srv := server.NewServer(pipeline, log)
	r := srv.SetupRouter()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Info().Str("port", port).Str("provider", cfg.LLM.Provider).Str("store", cfg.Store.Backend).Msg("starting server")
	if err := r.Run(":" + port); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
