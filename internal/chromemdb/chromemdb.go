package chromemdb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"docuchat/internal/helper"
	"docuchat/internal/vectorstore"
)

// errNoVectorizer is returned if chromem ever tries to embed on its own;
// vectors always come from the embedding provider.
var errNoVectorizer = errors.New("collection has no vectorizer, embeddings must be supplied")

func noVectorizer(context.Context, string) ([]float32, error) {
	return nil, errNoVectorizer
}

// Config selects between an on-disk database under Path and an in-memory one.
// In-memory databases are restored from SnapshotPath on open and written back on Close.
type Config struct {
	Path          string
	InMemory      bool
	Compress      bool
	SnapshotPath  string
	EncryptionKey string
}

// Index implements vectorstore.Index on top of an embedded chromem-go database.
type Index struct {
	db  *chromem.DB
	cfg Config

	// guards check-then-create, chromem replaces a collection created twice
	mu sync.Mutex
}

var _ vectorstore.Index = (*Index)(nil)

// NewIndex opens or creates the database described by cfg.
func NewIndex(cfg Config) (*Index, error) {
	var (
		db  *chromem.DB
		err error
	)
	if cfg.InMemory {
		db = chromem.NewDB()
		if cfg.SnapshotPath != "" {
			if _, statErr := os.Stat(cfg.SnapshotPath); statErr == nil {
				if err := db.ImportFromFile(cfg.SnapshotPath, cfg.EncryptionKey); err != nil {
					return nil, fmt.Errorf("failed to import snapshot %s: %w", cfg.SnapshotPath, err)
				}
				log.Info().Str("snapshot", cfg.SnapshotPath).Msg("Restored vector snapshot")
			}
		}
	} else {
		if err := helper.CreateFolder(cfg.Path); err != nil {
			return nil, err
		}
		db, err = chromem.NewPersistentDB(cfg.Path, cfg.Compress)
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
	}
	return &Index{db: db, cfg: cfg}, nil
}

func (ix *Index) CollectionExists(_ context.Context, name string) (bool, error) {
	return ix.db.GetCollection(name, noVectorizer) != nil, nil
}

func (ix *Index) CreateCollection(_ context.Context, name string, fields []string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.db.GetCollection(name, noVectorizer) != nil {
		return nil
	}
	metadata := map[string]string{"fields": strings.Join(fields, ",")}
	if _, err := ix.db.CreateCollection(name, metadata, noVectorizer); err != nil {
		return fmt.Errorf("failed to create collection %s: %w", name, err)
	}
	return nil
}

func (ix *Index) collection(name string) (*chromem.Collection, error) {
	c := ix.db.GetCollection(name, noVectorizer)
	if c == nil {
		return nil, fmt.Errorf("collection %s does not exist", name)
	}
	return c, nil
}

// Upsert adds the records; chromem keys documents by ID so a repeated ID overwrites.
func (ix *Index) Upsert(ctx context.Context, name string, records []vectorstore.Record) error {
	c, err := ix.collection(name)
	if err != nil {
		return err
	}

	docs := make([]chromem.Document, len(records))
	for i, r := range records {
		metadata := make(map[string]string, len(r.Fields))
		for k, v := range r.Fields {
			if k != vectorstore.FieldText {
				metadata[k] = v
			}
		}
		docs[i] = chromem.Document{
			ID:        r.ID,
			Content:   r.Fields[vectorstore.FieldText],
			Metadata:  metadata,
			Embedding: r.Vector,
		}
	}

	// chromem writes one file per document; a single worker keeps the last
	// write of a repeated ID deterministic.
	if err := c.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}
	return nil
}

func (ix *Index) Nearest(ctx context.Context, name string, vector []float32, k int) ([]map[string]string, error) {
	c, err := ix.collection(name)
	if err != nil {
		return nil, err
	}

	// chromem refuses nResults larger than the collection
	n := min(k, c.Count())
	if n <= 0 {
		return nil, nil
	}

	results, err := c.QueryEmbedding(ctx, vector, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}

	hits := make([]map[string]string, 0, len(results))
	for _, r := range results {
		fields := make(map[string]string, len(r.Metadata)+1)
		for k, v := range r.Metadata {
			fields[k] = v
		}
		fields[vectorstore.FieldText] = r.Content
		hits = append(hits, fields)
	}
	return hits, nil
}

// Count returns the number of documents in the collection, 0 if it does not exist.
func (ix *Index) Count(name string) int {
	c := ix.db.GetCollection(name, noVectorizer)
	if c == nil {
		return 0
	}
	return c.Count()
}

// DropCollection removes the collection and its documents.
func (ix *Index) DropCollection(_ context.Context, name string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if err := ix.db.DeleteCollection(name); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	return nil
}

// Export writes every collection to path, encrypted when a key is configured.
func (ix *Index) Export(path string) error {
	if path == "" {
		return errors.New("export path is required")
	}
	log.Debug().Str("path", path).Bool("compress", ix.cfg.Compress).Msg("Exporting vector database")
	if err := ix.db.ExportToFile(path, ix.cfg.Compress, ix.cfg.EncryptionKey); err != nil {
		return fmt.Errorf("failed to export database: %w", err)
	}
	return nil
}

// Close snapshots an in-memory database when a snapshot path is configured.
// Persistent databases are already on disk.
func (ix *Index) Close() error {
	if ix.cfg.InMemory && ix.cfg.SnapshotPath != "" {
		return ix.Export(ix.cfg.SnapshotPath)
	}
	return nil
}
