package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	askQuery   string
	askSession string
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Answer one question from the stored documents",
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askQuery, "query", "q", "", "question to be answered")
	askCmd.Flags().StringVar(&askSession, "session", "cli", "session id")
	_ = askCmd.MarkFlagRequired("query")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := buildApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.gateway.EnsureCollection(ctx); err != nil {
		return err
	}
	res, err := a.service.Chat(ctx, askSession, askQuery)
	if err != nil {
		return err
	}

	log.Info().Bool("retrieved_context", res.RetrievedContext).Msg("Query: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Fprintf(cmd.OutOrStdout(), "%s\n\n", askQuery)
	log.Info().Msg("Assistant: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Fprintf(cmd.OutOrStdout(), "%s\n\n", res.Answer)
	return nil
}
