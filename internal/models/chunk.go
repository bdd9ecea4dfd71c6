package models

import "github.com/google/uuid"

// chunkNamespace seeds the name-based uuids used as chunk ids.
var chunkNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("docuchat:document-chunk"))

// Chunk is a bounded substring of an ingested document, the unit of embedding and retrieval.
type Chunk struct {
	ID         string
	Text       string
	DocumentID string
}

// NewChunk builds a chunk whose id is derived from its text and document id,
// so storing the same pair twice addresses the same record.
func NewChunk(text, documentID string) Chunk {
	return Chunk{
		ID:         ChunkID(text, documentID),
		Text:       text,
		DocumentID: documentID,
	}
}

// ChunkID returns the deterministic id for a (text, document id) pair.
func ChunkID(text, documentID string) string {
	return uuid.NewSHA1(chunkNamespace, []byte(documentID+"\x00"+text)).String()
}

// Message is one entry of a session transcript.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Answer is the outcome of a grounded question.
type Answer struct {
	Answer       string
	ContextFound bool
}

type IngestResult struct {
	Message      string `json:"message"`
	DocumentID   string `json:"document_id"`
	ChunksStored int    `json:"chunks_stored"`
}

type ChatResult struct {
	SessionID        string `json:"session_id"`
	Answer           string `json:"answer"`
	RetrievedContext bool   `json:"retrieved_context"`
}
