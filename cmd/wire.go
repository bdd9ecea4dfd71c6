package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"docuchat/internal/chromemdb"
	"docuchat/internal/config"
	"docuchat/internal/db"
	"docuchat/internal/embedding"
	"docuchat/internal/history"
	"docuchat/internal/llmservice"
	"docuchat/internal/parser"
	"docuchat/internal/rag"
	"docuchat/internal/service"
	"docuchat/internal/vectorstore"
)

// app holds the wired components for one command run.
type app struct {
	gateway *vectorstore.Gateway
	history *history.Store
	service *service.Service
}

func newIndex(ctx context.Context, vc *config.VectorDBConfig) (vectorstore.Index, error) {
	switch vc.Backend {
	case "chromem":
		return chromemdb.NewIndex(chromemdb.Config{
			Path:          vc.Chromem.Path,
			InMemory:      vc.Chromem.InMemory,
			Compress:      vc.Chromem.Compress,
			SnapshotPath:  vc.Chromem.SnapshotPath,
			EncryptionKey: vc.Chromem.EncryptionKey,
		})
	case "postgres":
		return db.NewIndex(ctx, &vc.Postgres)
	default:
		return nil, fmt.Errorf("unknown vector backend %q", vc.Backend)
	}
}

func newEmbedder(c *config.Config) (embedding.Embedder, error) {
	if c.EmbedLLM.Provider == "hash" && c.VectorDB.Backend == "postgres" {
		// the table column is sized from the configured dimension
		return embedding.NewHashEmbedder(c.VectorDB.Postgres.Dimension), nil
	}
	return embedding.NewEmbedder(&c.EmbedLLM)
}

// buildApp wires the pipeline. withChat is false for commands that never
// generate, so they do not need chat credentials.
func buildApp(ctx context.Context, c *config.Config, withChat bool) (*app, error) {
	chunker, err := parser.NewChunker(c.RAG.ChunkSize, c.RAG.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	store, err := history.New(c.RAG.HistorySize, history.WithTTL(c.RAG.SessionTTL))
	if err != nil {
		return nil, err
	}
	embedder, err := newEmbedder(c)
	if err != nil {
		return nil, err
	}
	index, err := newIndex(ctx, &c.VectorDB)
	if err != nil {
		return nil, err
	}

	gateway := vectorstore.New(index, embedder,
		vectorstore.WithCollection(c.VectorDB.Collection),
		vectorstore.WithTopK(c.RAG.TopK),
		vectorstore.WithTimeout(c.EmbedLLM.Timeout),
	)

	var answerer service.Answerer
	if withChat {
		client, err := llmservice.NewClient(&c.ChatLLM)
		if err != nil {
			gateway.Close()
			return nil, err
		}
		answerer = rag.NewRAG(gateway, client,
			rag.WithTopK(c.RAG.TopK),
			rag.WithTemperature(c.RAG.Temperature),
			rag.WithTimeout(c.ChatLLM.Timeout),
		)
	}

	log.Debug().
		Str("backend", c.VectorDB.Backend).
		Str("collection", gateway.Collection()).
		Str("embed_provider", c.EmbedLLM.Provider).
		Bool("chat", withChat).
		Msg("Pipeline wired")

	return &app{
		gateway: gateway,
		history: store,
		service: service.New(chunker, gateway, answerer, store),
	}, nil
}

func (a *app) Close() {
	if err := a.gateway.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing vector index")
	}
}
