package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/agenthands/lexrag/internal/config"
	"github.com/agenthands/lexrag/internal/llm"
	"github.com/agenthands/lexrag/internal/rag"
	"github.com/agenthands/lexrag/internal/store"
)

var demoQuestions = []string{
	"What kinds of contracts exist in civil law?",
	"What taxes are levied?",
	"What rights do employees have under the labour code?",
	"What counts as an administrative offence?",
}

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

	questions := os.Args[1:]
	if len(questions) == 0 {
		questions = demoQuestions
	}

	for _, question := range questions {
		askQuestion(ctx, pipeline, question, cfg.Query.TopK)
	}
}

func askQuestion(ctx context.Context, pipeline *rag.Pipeline, question string, topK int) {
	fmt.Println("Question:", question)

	answer, hits, err := pipeline.Ask(ctx, question, topK)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}

	if len(hits) == 0 {
		fmt.Println("No matching documents found. Try rephrasing the question.")
		fmt.Println()
		return
	}

	fmt.Println("Matches per document:")
	for name, count := range rag.HitCounts(hits) {
		fmt.Printf(" - %s: %d chunk(s)\n", name, count)
	}

	fmt.Println("\nAnswer:")
	fmt.Println(answer)

	fmt.Println("\nSources:")
	for _, src := range rag.Sources(hits) {
		name := src.DocumentName
		if name == "" {
			name = "Unknown document"
		}
		if src.PageNumber > 0 {
			fmt.Printf(" - %s, page %d\n", name, src.PageNumber)
		} else {
			fmt.Printf(" - %s\n", name)
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 80) + "\n")
}
