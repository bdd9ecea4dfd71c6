package parser

import (
	"fmt"
	"strings"

	"docuchat/internal/models"
)

const (
	DefaultChunkSize    = 1000 // characters
	DefaultChunkOverlap = 200  // characters
)

// Chunker splits text into fixed-size, overlapping character windows.
// Boundaries ignore words and sentences.
type Chunker struct {
	chunkSize int
	overlap   int
}

// NewChunker validates the window parameters. overlap must be strictly
// smaller than chunkSize, otherwise the window would never advance.
func NewChunker(chunkSize, overlap int) (*Chunker, error) {
	if chunkSize <= 0 {
		return nil, models.NewOpError("chunker", models.ErrInvalidConfig,
			fmt.Errorf("chunk size must be positive, got %d", chunkSize))
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, models.NewOpError("chunker", models.ErrInvalidConfig,
			fmt.Errorf("overlap must be in [0, %d), got %d", chunkSize, overlap))
	}
	return &Chunker{chunkSize: chunkSize, overlap: overlap}, nil
}

func (c *Chunker) ChunkSize() int { return c.chunkSize }
func (c *Chunker) Overlap() int   { return c.overlap }

// Chunk returns the windows of text in order. Empty or whitespace-only
// input yields no chunks.
func (c *Chunker) Chunk(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	step := c.chunkSize - c.overlap
	chunks := make([]string, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := min(start+c.chunkSize, len(runes))
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
