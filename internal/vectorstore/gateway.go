package vectorstore

import (
	"context"
	"runtime"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"docuchat/internal/models"
)

const (
	DefaultCollection = "DocumentChunk"
	DefaultTopK       = 3
)

type Gateway struct {
	index       Index
	embedder    Embedder
	collection  string
	topK        int
	timeout     time.Duration
	concurrency int

	ensure singleflight.Group
}

type Option func(*Gateway)

func WithCollection(name string) Option {
	return func(g *Gateway) {
		if name != "" {
			g.collection = name
		}
	}
}

// WithTopK sets the result count used when Query is called with topK <= 0.
func WithTopK(k int) Option {
	return func(g *Gateway) {
		if k > 0 {
			g.topK = k
		}
	}
}

// WithTimeout bounds every embedding and index call. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) { g.timeout = d }
}

// WithConcurrency caps how many chunks are embedded in parallel during Store.
func WithConcurrency(n int) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.concurrency = n
		}
	}
}

func New(index Index, embedder Embedder, opts ...Option) *Gateway {
	g := &Gateway{
		index:       index,
		embedder:    embedder,
		collection:  DefaultCollection,
		topK:        DefaultTopK,
		concurrency: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gateway) Collection() string { return g.collection }

func (g *Gateway) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.timeout)
}

// EnsureCollection creates the chunk collection if it does not exist yet.
// Concurrent callers share one check-and-create round trip.
func (g *Gateway) EnsureCollection(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return models.Unavailable("ensure collection", err)
	}
	_, err, _ := g.ensure.Do(g.collection, func() (any, error) {
		callCtx, cancel := g.withTimeout(ctx)
		defer cancel()

		exists, err := g.index.CollectionExists(callCtx, g.collection)
		if err != nil {
			return nil, models.Unavailable("ensure collection", err)
		}
		if exists {
			return nil, nil
		}
		if err := g.index.CreateCollection(callCtx, g.collection, CollectionFields); err != nil {
			return nil, models.Unavailable("ensure collection", err)
		}
		log.Info().Str("collection", g.collection).Msg("Collection created")
		return nil, nil
	})
	return err
}

// Reset drops the collection with every stored chunk and creates it empty.
func (g *Gateway) Reset(ctx context.Context) error {
	callCtx, cancel := g.withTimeout(ctx)
	err := g.index.DropCollection(callCtx, g.collection)
	cancel()
	if err != nil {
		return models.Unavailable("reset collection", err)
	}
	log.Info().Str("collection", g.collection).Msg("Collection dropped")
	return g.EnsureCollection(ctx)
}

// Store embeds every chunk and upserts them in one batch under ids derived
// from (text, documentID). It returns the number of chunks written.
func (g *Gateway) Store(ctx context.Context, documentID string, chunks []string) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	records := make([]Record, len(chunks))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.concurrency)
	for i, text := range chunks {
		i, text := i, text
		eg.Go(func() error {
			vec, err := g.embed(egCtx, text)
			if err != nil {
				return err
			}
			chunk := models.NewChunk(text, documentID)
			records[i] = Record{
				ID:     chunk.ID,
				Vector: vec,
				Fields: map[string]string{
					FieldText:       chunk.Text,
					FieldDocumentID: chunk.DocumentID,
				},
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return 0, models.Unavailable("store chunks", err)
	}

	callCtx, cancel := g.withTimeout(ctx)
	defer cancel()
	if err := g.index.Upsert(callCtx, g.collection, records); err != nil {
		return 0, models.Unavailable("store chunks", err)
	}

	log.Debug().Str("document_id", documentID).Int("chunks", len(records)).Msg("Stored chunks")
	return len(records), nil
}

// Query returns up to topK chunk texts most similar to queryText across all
// documents. topK <= 0 uses the configured default.
func (g *Gateway) Query(ctx context.Context, queryText string, topK int) ([]string, error) {
	if topK <= 0 {
		topK = g.topK
	}

	vec, err := g.embed(ctx, queryText)
	if err != nil {
		return nil, models.Unavailable("query chunks", err)
	}

	callCtx, cancel := g.withTimeout(ctx)
	defer cancel()
	hits, err := g.index.Nearest(callCtx, g.collection, vec, topK)
	if err != nil {
		return nil, models.Unavailable("query chunks", err)
	}

	texts := make([]string, 0, len(hits))
	for _, hit := range hits {
		if text := hit[FieldText]; text != "" {
			texts = append(texts, text)
		}
	}
	log.Debug().Int("top_k", topK).Int("hits", len(texts)).Msg("Queried chunks")
	return texts, nil
}

func (g *Gateway) embed(ctx context.Context, text string) ([]float32, error) {
	callCtx, cancel := g.withTimeout(ctx)
	defer cancel()
	return g.embedder.EmbedQuery(callCtx, text)
}

// Close releases the underlying index.
func (g *Gateway) Close() error {
	return g.index.Close()
}
