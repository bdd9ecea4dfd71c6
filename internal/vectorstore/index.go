// Package vectorstore hides the embedding provider and the vector index
// behind ensure, store and query operations.
package vectorstore

import "context"

const (
	FieldText       = "text"
	FieldDocumentID = "document_id"
)

// CollectionFields is the schema every chunk collection is created with.
var CollectionFields = []string{FieldText, FieldDocumentID}

// Record is one vector plus its stored fields.
type Record struct {
	ID     string
	Vector []float32
	Fields map[string]string
}

// Index is the external vector database. Implementations store the vectors
// they are given and never vectorise on their own.
type Index interface {
	CollectionExists(ctx context.Context, name string) (bool, error)
	// CreateCollection must treat an already existing collection as success.
	CreateCollection(ctx context.Context, name string, fields []string) error
	// Upsert overwrites records with the same ID.
	Upsert(ctx context.Context, collection string, records []Record) error
	// Nearest returns the fields of at most k records, most similar first.
	Nearest(ctx context.Context, collection string, vector []float32, k int) ([]map[string]string, error)
	// DropCollection must treat a missing collection as success.
	DropCollection(ctx context.Context, name string) error
	Close() error
}

// Embedder produces the vector for a chunk or a query.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}
