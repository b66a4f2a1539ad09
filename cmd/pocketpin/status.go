package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the newest bookmark mirrored to Pinboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		sink, err := newSink(cfg, log)
		if err != nil {
			return err
		}

		latest, err := sink.Latest(cmd.Context())
		if err != nil {
			return err
		}
		if latest == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "No bookmarks tagged %s yet; the next sync copies everything.\n", cfg.Sync.Tag)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Last synced: %s\n", latest)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
