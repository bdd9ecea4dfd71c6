package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"docuchat/internal/config"
	"docuchat/internal/vectorstore"
)

// Document is one chunk row. The table name is chosen per collection at query time.
type Document struct {
	bun.BaseModel `bun:"table:document_chunks,alias:d"`
	ID            string          `bun:"id,pk"`
	Text          string          `bun:"text,notnull"`
	DocumentID    string          `bun:"document_id,notnull"`
	Embedding     pgvector.Vector `bun:"embedding,type:vector"`
}

func newDocument(r vectorstore.Record) Document {
	return Document{
		ID:         r.ID,
		Text:       r.Fields[vectorstore.FieldText],
		DocumentID: r.Fields[vectorstore.FieldDocumentID],
		Embedding:  pgvector.NewVector(r.Vector),
	}
}

// Index implements vectorstore.Index with PostgreSQL and the pgvector extension.
type Index struct {
	db        *bun.DB
	dimension int
}

var _ vectorstore.Index = (*Index)(nil)

// ConnectDB opens a connection pool with the configured driver: bun's pgdriver
// by default, lib/pq when driver is "pq".
func ConnectDB(cfg *config.PostgresConfig) (*sql.DB, error) {
	switch cfg.Driver {
	case "", "pgdriver":
		return sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN))), nil
	case "pq":
		return sql.Open("postgres", cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown postgres driver %q", cfg.Driver)
	}
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

// NewIndex connects and pings the database.
func NewIndex(ctx context.Context, cfg *config.PostgresConfig) (*Index, error) {
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("vector dimension must be positive, got %d", cfg.Dimension)
	}
	sqldb, err := ConnectDB(cfg)
	if err != nil {
		return nil, err
	}
	db := NewDB(sqldb, cfg.Debug)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Index{db: db, dimension: cfg.Dimension}, nil
}

func (ix *Index) CollectionExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := ix.db.NewRaw(
		"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = ?)",
		name,
	).Scan(ctx, &exists)
	if err != nil {
		return false, fmt.Errorf("check table %s: %w", name, err)
	}
	return exists, nil
}

// CreateCollection creates the chunk table and its HNSW cosine index. Losing a
// creation race to another process counts as success.
func (ix *Index) CreateCollection(ctx context.Context, name string, fields []string) error {
	for _, f := range fields {
		if !slices.Contains(vectorstore.CollectionFields, f) {
			return fmt.Errorf("field %q is not part of the chunk schema", f)
		}
	}

	statements := []struct {
		query string
		args  []any
	}{
		{"CREATE EXTENSION IF NOT EXISTS vector", nil},
		{
			"CREATE TABLE IF NOT EXISTS ? (id TEXT PRIMARY KEY, text TEXT NOT NULL, document_id TEXT NOT NULL, embedding vector(?) NOT NULL)",
			[]any{bun.Ident(name), ix.dimension},
		},
		{
			"CREATE INDEX IF NOT EXISTS ? ON ? USING hnsw (embedding vector_cosine_ops)",
			[]any{bun.Ident(name + "_embedding_idx"), bun.Ident(name)},
		},
	}
	for _, stmt := range statements {
		if _, err := ix.db.ExecContext(ctx, stmt.query, stmt.args...); err != nil {
			if isAlreadyExists(err) {
				continue
			}
			return fmt.Errorf("create collection %s: %w", name, err)
		}
	}
	log.Debug().Str("table", name).Int("dimension", ix.dimension).Msg("Chunk table ready")
	return nil
}

func (ix *Index) Upsert(ctx context.Context, name string, records []vectorstore.Record) error {
	if len(records) == 0 {
		return nil
	}

	// one INSERT cannot touch the same row twice
	seen := make(map[string]int, len(records))
	docs := make([]Document, 0, len(records))
	for _, r := range records {
		doc := newDocument(r)
		if i, ok := seen[r.ID]; ok {
			docs[i] = doc
			continue
		}
		seen[r.ID] = len(docs)
		docs = append(docs, doc)
	}

	_, err := ix.db.NewInsert().
		Model(&docs).
		ModelTableExpr("? AS d", bun.Ident(name)).
		On("CONFLICT (id) DO UPDATE").
		Set("text = EXCLUDED.text").
		Set("document_id = EXCLUDED.document_id").
		Set("embedding = EXCLUDED.embedding").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert into %s: %w", name, err)
	}
	return nil
}

func (ix *Index) Nearest(ctx context.Context, name string, vector []float32, k int) ([]map[string]string, error) {
	if k <= 0 {
		return nil, nil
	}
	var docs []Document
	err := ix.db.NewSelect().
		Model(&docs).
		ModelTableExpr("? AS d", bun.Ident(name)).
		Column("id", "text", "document_id").
		OrderExpr("embedding <=> ?::vector", pgvector.NewVector(vector)).
		Limit(k).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", name, err)
	}

	hits := make([]map[string]string, len(docs))
	for i, d := range docs {
		hits[i] = map[string]string{
			vectorstore.FieldText:       d.Text,
			vectorstore.FieldDocumentID: d.DocumentID,
		}
	}
	return hits, nil
}

// DropCollection removes the chunk table.
func (ix *Index) DropCollection(ctx context.Context, name string) error {
	_, err := ix.db.ExecContext(ctx, "DROP TABLE IF EXISTS ?", bun.Ident(name))
	return err
}

func (ix *Index) Close() error {
	return ix.db.Close()
}

// isAlreadyExists recognises duplicate_table, duplicate_object and the
// unique_violation postgres raises when two CREATE ... IF NOT EXISTS race.
func isAlreadyExists(err error) bool {
	codes := []string{"42P07", "42710", "23505"}

	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return slices.Contains(codes, pgErr.Field('C'))
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return slices.Contains(codes, string(pqErr.Code))
	}
	return false
}
