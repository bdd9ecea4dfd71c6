// Package rag answers a question from retrieved chunks and the session transcript.
package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"docuchat/internal/models"
)

const (
	DefaultTopK        = 3
	DefaultTemperature = 0.1
)

// Retriever returns the chunk texts most similar to a query.
type Retriever interface {
	Query(ctx context.Context, queryText string, topK int) ([]string, error)
}

// Generator produces one completion for a system and a user prompt.
type Generator interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, temperature float64) (string, error)
}

type RAG struct {
	retriever   Retriever
	generator   Generator
	topK        int
	temperature float64
	timeout     time.Duration
}

type Option func(*RAG)

func WithTopK(k int) Option {
	return func(r *RAG) {
		if k > 0 {
			r.topK = k
		}
	}
}

func WithTemperature(t float64) Option {
	return func(r *RAG) { r.temperature = t }
}

// WithTimeout bounds the generation call. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(r *RAG) { r.timeout = d }
}

func NewRAG(retriever Retriever, generator Generator, opts ...Option) *RAG {
	r := &RAG{
		retriever:   retriever,
		generator:   generator,
		topK:        DefaultTopK,
		temperature: DefaultTemperature,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Answer retrieves context for query and generates a grounded reply. When
// nothing is retrieved it returns the fallback answer without calling the model.
func (r *RAG) Answer(ctx context.Context, query string, history []models.Message) (models.Answer, error) {
	chunks, err := r.retriever.Query(ctx, query, r.topK)
	if err != nil {
		return models.Answer{}, err
	}
	if len(chunks) == 0 {
		log.Debug().Str("query", query).Msg("No context retrieved, returning fallback")
		return models.Answer{Answer: models.FallbackAnswer, ContextFound: false}, nil
	}

	userPrompt := BuildPrompt(chunks, history, query)

	genCtx, cancel := r.generationContext(ctx)
	defer cancel()
	start := time.Now()
	answer, err := r.generator.Complete(genCtx, models.SystemPrompt, userPrompt, r.temperature)
	if err != nil {
		return models.Answer{}, models.Unavailable("generate answer", err)
	}
	log.Debug().
		Int("chunks", len(chunks)).
		Int("history", len(history)).
		Dur("took", time.Since(start)).
		Msg("Generated answer")

	return models.Answer{Answer: answer, ContextFound: true}, nil
}

func (r *RAG) generationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

// BuildPrompt renders the user prompt from the retrieved chunks, the
// transcript and the question.
func BuildPrompt(chunks []string, history []models.Message, query string) string {
	return fmt.Sprintf(models.UserPromptTemplate,
		strings.Join(chunks, models.ContextSeparator),
		RenderHistory(history),
		query,
	)
}

// RenderHistory writes one "role: content" line per message.
func RenderHistory(history []models.Message) string {
	lines := make([]string, len(history))
	for i, m := range history {
		lines[i] = m.Role + ": " + m.Content
	}
	return strings.Join(lines, "\n")
}
