package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var resetYes bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop every stored chunk and recreate an empty collection",
	RunE:  runReset,
}

func init() {
	resetCmd.Flags().BoolVar(&resetYes, "yes", false, "confirm deleting all stored chunks")
	_ = resetCmd.MarkFlagRequired("yes")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cmd.Context(), cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.gateway.Reset(cmd.Context()); err != nil {
		return err
	}
	log.Info().Str("collection", a.gateway.Collection()).Msg("Collection reset")
	return nil
}
