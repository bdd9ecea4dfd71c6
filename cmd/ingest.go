package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"docuchat/internal/helper"
	"docuchat/internal/parser"
)

var (
	ingestFile       string
	ingestDocumentID string
	ingestDryRun     bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Chunk a document and store its embeddings",
	RunE:  runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestFile, "file", "f", "", "path to the document file")
	ingestCmd.Flags().StringVar(&ingestDocumentID, "document-id", "", "document id (random when empty)")
	ingestCmd.Flags().BoolVar(&ingestDryRun, "dry-run", false, "print the chunks instead of storing them")
	_ = ingestCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(ingestFile)
	if err != nil {
		return fmt.Errorf("read %s: %w", ingestFile, err)
	}

	if ingestDryRun {
		text, err := parser.ExtractText(filepath.Base(ingestFile), data)
		if err != nil {
			return err
		}
		chunker, err := parser.NewChunker(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
		if err != nil {
			return err
		}
		chunks := chunker.Chunk(text)
		log.Info().Int("chunks", len(chunks)).Msg("Parsed content")
		helper.PrettyPrint(chunks)
		return nil
	}

	ctx := context.Background()
	a, err := buildApp(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.gateway.EnsureCollection(ctx); err != nil {
		return err
	}
	res, err := a.service.IngestFile(ctx, ingestDocumentID, filepath.Base(ingestFile), data)
	if err != nil {
		return err
	}
	helper.PrettyPrint(res)
	return nil
}
