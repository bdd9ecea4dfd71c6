package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"docuchat/internal/config"
)

const defaultConfigPath = "./configs/config.yaml"

var (
	configPath string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "docuchat",
	Short: "Ingest documents and chat with them",
	Long: `docuchat splits documents into overlapping chunks, stores their embeddings
in a vector index and answers questions grounded in the retrieved chunks.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return err
		}
		setupLogger(&cfg.Log)
		log.Debug().Interface("config", redacted(cfg)).Msg("Loaded config")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to the YAML config file")
}

func setupLogger(lc *config.LogConfig) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	level, err := zerolog.ParseLevel(lc.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if lc.Console {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()
		return
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()
}

// redacted returns a copy of c that is safe to log.
func redacted(c *config.Config) config.Config {
	out := *c
	for _, llm := range []*config.LLMConfig{&out.EmbedLLM, &out.ChatLLM} {
		if llm.Key != "" {
			llm.Key = "***"
		}
	}
	if out.VectorDB.Postgres.DSN != "" {
		out.VectorDB.Postgres.DSN = "***"
	}
	if out.VectorDB.Chromem.EncryptionKey != "" {
		out.VectorDB.Chromem.EncryptionKey = "***"
	}
	return out
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("docuchat failed")
	}
}
