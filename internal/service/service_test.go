package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docuchat/internal/chromemdb"
	"docuchat/internal/embedding"
	"docuchat/internal/history"
	"docuchat/internal/models"
	"docuchat/internal/parser"
	"docuchat/internal/rag"
	"docuchat/internal/vectorstore"
)

// echoGenerator answers with the context section of the prompt.
type echoGenerator struct {
	calls int
}

func (g *echoGenerator) Complete(_ context.Context, _, user string, _ float64) (string, error) {
	g.calls++
	retrieved := strings.SplitN(strings.TrimPrefix(user, "Context:\n"), "\n\nConversation History:", 2)[0]
	return "From the document: " + retrieved, nil
}

type pipeline struct {
	svc *Service
	gen *echoGenerator
}

func newPipeline(t *testing.T) pipeline {
	t.Helper()
	ix, err := chromemdb.NewIndex(chromemdb.Config{InMemory: true})
	require.NoError(t, err)

	gateway := vectorstore.New(ix, embedding.NewHashEmbedder(embedding.DefaultHashDimension))
	require.NoError(t, gateway.EnsureCollection(context.Background()))
	t.Cleanup(func() { gateway.Close() })

	chunker, err := parser.NewChunker(1000, 200)
	require.NoError(t, err)
	store, err := history.New(history.DefaultCapacity)
	require.NoError(t, err)

	gen := &echoGenerator{}
	return pipeline{
		svc: New(chunker, gateway, rag.NewRAG(gateway, gen), store),
		gen: gen,
	}
}

func TestIngestThenChat(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	res, err := p.svc.Ingest(ctx, "", "The sky is blue. Grass is green.")
	require.NoError(t, err)
	assert.Equal(t, 1, res.ChunksStored)
	assert.NotEmpty(t, res.DocumentID)
	assert.Equal(t, "Document ingested successfully.", res.Message)

	chat, err := p.svc.Chat(ctx, "s1", "What color is the sky?")
	require.NoError(t, err)
	assert.True(t, chat.RetrievedContext)
	assert.Equal(t, "s1", chat.SessionID)
	assert.Contains(t, chat.Answer, "The sky is blue.")
	assert.Equal(t, 1, p.gen.calls)

	hist := p.svc.History("s1")
	require.Len(t, hist, 2)
	assert.Equal(t, models.Message{Role: models.RoleUser, Content: "What color is the sky?"}, hist[0])
	assert.Equal(t, models.Message{Role: models.RoleAssistant, Content: chat.Answer}, hist[1])
}

func TestChatWithoutIngestion(t *testing.T) {
	p := newPipeline(t)

	chat, err := p.svc.Chat(context.Background(), "s1", "What color is the sky?")
	require.NoError(t, err)
	assert.False(t, chat.RetrievedContext)
	assert.Equal(t, models.FallbackAnswer, chat.Answer)
	assert.Zero(t, p.gen.calls)

	// the fallback exchange is still recorded
	assert.Len(t, p.svc.History("s1"), 2)
}

func TestHistoryOfUnknownSession(t *testing.T) {
	chunker, err := parser.NewChunker(parser.DefaultChunkSize, parser.DefaultChunkOverlap)
	require.NoError(t, err)
	store, err := history.New(history.DefaultCapacity)
	require.NoError(t, err)
	svc := New(chunker, nil, failingAnswerer{}, store)

	got := svc.History("never-seen")
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Zero(t, store.Len())
}

func TestIngestKeepsGivenDocumentID(t *testing.T) {
	p := newPipeline(t)
	var b strings.Builder
	for i := 0; b.Len() < 2500; i++ {
		fmt.Fprintf(&b, "word%04d ", i)
	}
	text := b.String()[:2500]

	res, err := p.svc.Ingest(context.Background(), "doc-7", text)
	require.NoError(t, err)
	assert.Equal(t, "doc-7", res.DocumentID)
	assert.Equal(t, 4, res.ChunksStored)
}

func TestIngestEmpty(t *testing.T) {
	p := newPipeline(t)
	_, err := p.svc.Ingest(context.Background(), "", "  \n\t ")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestIngestFile(t *testing.T) {
	p := newPipeline(t)
	res, err := p.svc.IngestFile(context.Background(), "", "notes.md", []byte("# Notes\n\nThe sky is blue."))
	require.NoError(t, err)
	assert.Equal(t, 1, res.ChunksStored)

	_, err = p.svc.IngestFile(context.Background(), "", "image.png", []byte{0x89, 'P', 'N', 'G'})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestChatRejectsBlankInput(t *testing.T) {
	p := newPipeline(t)
	_, err := p.svc.Chat(context.Background(), "", "q")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	_, err = p.svc.Chat(context.Background(), "s1", "   ")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

type failingAnswerer struct{}

func (failingAnswerer) Answer(context.Context, string, []models.Message) (models.Answer, error) {
	return models.Answer{}, models.Unavailable("query chunks", errors.New("down"))
}

func TestChatFailureLeavesHistoryUntouched(t *testing.T) {
	chunker, err := parser.NewChunker(parser.DefaultChunkSize, parser.DefaultChunkOverlap)
	require.NoError(t, err)
	store, err := history.New(history.DefaultCapacity)
	require.NoError(t, err)
	svc := New(chunker, nil, failingAnswerer{}, store)

	_, err = svc.Chat(context.Background(), "s1", "q")
	assert.ErrorIs(t, err, models.ErrUnavailable)
	assert.Empty(t, svc.History("s1"))
}
