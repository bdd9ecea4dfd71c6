package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docuchat/internal/chromemdb"
	"docuchat/internal/config"
)

func TestRedacted(t *testing.T) {
	c := config.Default()
	c.EmbedLLM.Key = "sk-secret"
	c.ChatLLM.Key = "sk-secret"
	c.VectorDB.Postgres.DSN = "postgres://u:p@h/db"

	out := redacted(c)
	assert.Equal(t, "***", out.EmbedLLM.Key)
	assert.Equal(t, "***", out.ChatLLM.Key)
	assert.Equal(t, "***", out.VectorDB.Postgres.DSN)
	assert.Equal(t, "sk-secret", c.ChatLLM.Key)
}

func TestIngestDryRun(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "sky.txt")
	require.NoError(t, os.WriteFile(doc, []byte("The sky is blue. Grass is green."), 0o644))

	rootCmd.SetArgs([]string{"ingest", "--config", filepath.Join(dir, "missing.yaml"), "--file", doc, "--dry-run"})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		ingestDryRun = false
	})
	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, config.Default().RAG.ChunkSize, cfg.RAG.ChunkSize)
}

func TestIngestRequiresFile(t *testing.T) {
	rootCmd.SetArgs([]string{"ingest"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	assert.Error(t, rootCmd.Execute())
}

func TestServeClosesIndexWhenStartupFails(t *testing.T) {
	dir := t.TempDir()
	snapshot := filepath.Join(dir, "vectors.gob")
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: "127.0.0.1:0"
embed_llm:
  provider: hash
chat_llm:
  provider: ollama
  model: llama3
vector_db:
  backend: chromem
  chromem:
    in_memory: true
    snapshot_path: `+snapshot+`
`), 0o644))

	// a cancelled context makes EnsureCollection fail before serving
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rootCmd.SetArgs([]string{"serve", "--config", path})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.ExecuteContext(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ensure collection")

	_, statErr := os.Stat(snapshot)
	assert.NoError(t, statErr, "in-memory index was not snapshotted on the error path")
}

func TestIngestThenReset(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "vectors")
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
embed_llm:
  provider: hash
chat_llm:
  provider: ollama
vector_db:
  backend: chromem
  collection: Chunks
  chromem:
    path: `+dbPath+`
`), 0o644))
	doc := filepath.Join(dir, "sky.txt")
	require.NoError(t, os.WriteFile(doc, []byte("The sky is blue. Grass is green."), 0o644))
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	count := func() int {
		ix, err := chromemdb.NewIndex(chromemdb.Config{Path: dbPath})
		require.NoError(t, err)
		return ix.Count("Chunks")
	}

	rootCmd.SetArgs([]string{"ingest", "--config", path, "--file", doc, "--dry-run=false"})
	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, 1, count())

	rootCmd.SetArgs([]string{"reset", "--config", path, "--yes"})
	require.NoError(t, rootCmd.Execute())
	assert.Zero(t, count())
}
