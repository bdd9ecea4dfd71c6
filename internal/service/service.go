// Package service holds the ingest and chat use cases shared by the HTTP
// server and the CLI.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"docuchat/internal/helper"
	"docuchat/internal/models"
	"docuchat/internal/parser"
)

const ingestedMessage = "Document ingested successfully."

type Chunker interface {
	Chunk(text string) []string
}

type ChunkStore interface {
	Store(ctx context.Context, documentID string, chunks []string) (int, error)
}

type Answerer interface {
	Answer(ctx context.Context, query string, history []models.Message) (models.Answer, error)
}

type History interface {
	Get(sessionID string) []models.Message
	Peek(sessionID string) []models.Message
	Append(sessionID, userMessage, assistantMessage string)
}

type Service struct {
	chunker Chunker
	store   ChunkStore
	rag     Answerer
	history History
}

func New(chunker Chunker, store ChunkStore, rag Answerer, history History) *Service {
	return &Service{chunker: chunker, store: store, rag: rag, history: history}
}

// IngestFile extracts the text of an uploaded file and ingests it.
func (s *Service) IngestFile(ctx context.Context, documentID, filename string, data []byte) (models.IngestResult, error) {
	text, err := parser.ExtractText(filename, data)
	if err != nil {
		return models.IngestResult{}, err
	}
	return s.Ingest(ctx, documentID, text)
}

// Ingest chunks text and stores the chunks under documentID, generating a
// random id when none is given.
func (s *Service) Ingest(ctx context.Context, documentID, text string) (models.IngestResult, error) {
	chunks := s.chunker.Chunk(text)
	if len(chunks) == 0 {
		return models.IngestResult{}, models.InvalidInput("ingest", "The document appears to be empty.")
	}

	if documentID == "" {
		id, err := helper.GenerateUUID()
		if err != nil {
			return models.IngestResult{}, err
		}
		documentID = id
	}

	start := time.Now()
	n, err := s.store.Store(ctx, documentID, chunks)
	if err != nil {
		return models.IngestResult{}, err
	}
	log.Info().
		Str("document_id", documentID).
		Int("chunks", n).
		Dur("took", time.Since(start)).
		Msg("Document ingested")

	return models.IngestResult{
		Message:      ingestedMessage,
		DocumentID:   documentID,
		ChunksStored: n,
	}, nil
}

// Chat answers question within the session and records the exchange, the
// fallback answer included.
func (s *Service) Chat(ctx context.Context, sessionID, question string) (models.ChatResult, error) {
	if strings.TrimSpace(sessionID) == "" {
		return models.ChatResult{}, models.InvalidInput("chat", "session_id is required")
	}
	if strings.TrimSpace(question) == "" {
		return models.ChatResult{}, models.InvalidInput("chat", "question is required")
	}

	ans, err := s.rag.Answer(ctx, question, s.history.Get(sessionID))
	if err != nil {
		return models.ChatResult{}, err
	}
	s.history.Append(sessionID, question, ans.Answer)

	log.Debug().Str("session_id", sessionID).Bool("context_found", ans.ContextFound).Msg("Chat answered")
	return models.ChatResult{
		SessionID:        sessionID,
		Answer:           ans.Answer,
		RetrievedContext: ans.ContextFound,
	}, nil
}

// History returns the transcript of a session. Asking about an unknown
// session does not create it.
func (s *Service) History(sessionID string) []models.Message {
	if msgs := s.history.Peek(sessionID); msgs != nil {
		return msgs
	}
	return []models.Message{}
}
