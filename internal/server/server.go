package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/agenthands/lexrag/internal/rag"
	"github.com/agenthands/lexrag/internal/store"
)

// QueryPipeline is the part of the RAG pipeline the HTTP layer needs.
type QueryPipeline interface {
	Ask(ctx context.Context, question string, topK int) (string, []store.Hit, error)
}

type Server struct {
	pipeline QueryPipeline
	log      zerolog.Logger
}

func NewServer(pipeline QueryPipeline, log zerolog.Logger) *Server {
	return &Server{pipeline: pipeline, log: log}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.Default()

	r.POST("/query", s.Query)
	r.GET("/health", s.Health)

	return r
}

type QuestionPayload struct {
	QuestionID int    `json:"question_id"`
	Question   string `json:"question"`
	TopK       int    `json:"top_k,omitempty"`
}

type QuestionsBatch struct {
	Questions   []QuestionPayload `json:"questions"`
	DefaultTopK int               `json:"default_top_k,omitempty"`
}

type RelevantChunk struct {
	DocumentName string `json:"document_name"`
	PageNumber   int    `json:"page_number"`
}

type QueryResponse struct {
	QuestionID     int             `json:"question_id"`
	RelevantChunks []RelevantChunk `json:"relevant_chunks"`
	Answer         any             `json:"answer"`
}

// Query answers a batch of questions sequentially. A missing vector store is
// a 503; any other pipeline failure is a 500 with the error text.
func (s *Server) Query(c *gin.Context) {
	var req QuestionsBatch
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if len(req.Questions) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Payload must contain at least one question"})
		return
	}

	fallbackK := req.DefaultTopK
	if fallbackK <= 0 {
		fallbackK = rag.DefaultTopK
	}

	responses := make([]QueryResponse, 0, len(req.Questions))
	for _, item := range req.Questions {
		topK := item.TopK
		if topK <= 0 {
			topK = fallbackK
		}

		answer, hits, err := s.pipeline.Ask(c.Request.Context(), item.Question, topK)
		if err != nil {
			s.log.Error().Err(err).Int("question_id", item.QuestionID).Msg("query failed")
			if errors.Is(err, store.ErrStoreNotFound) {
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		chunks := make([]RelevantChunk, 0, len(hits))
		for _, src := range rag.Sources(hits) {
			chunks = append(chunks, RelevantChunk{
				DocumentName: src.DocumentName,
				PageNumber:   src.PageNumber,
			})
		}
		responses = append(responses, QueryResponse{
			QuestionID:     item.QuestionID,
			RelevantChunks: chunks,
			Answer:         coerceAnswer(answer),
		})
	}

	c.JSON(http.StatusOK, responses)
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// coerceAnswer turns a numeric-looking answer into a typed value: int first,
// then float with a comma accepted as decimal separator, else the string
// unchanged.
func coerceAnswer(raw string) any {
	stripped := strings.TrimSpace(raw)
	if stripped == "" {
		return ""
	}
	if n, err := strconv.ParseInt(stripped, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(strings.ReplaceAll(stripped, ",", "."), 64); err == nil {
		return f
	}
	return stripped
}
