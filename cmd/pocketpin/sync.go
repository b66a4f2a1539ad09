package main

import (
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Copy new Pocket items to Pinboard",
	Long:  "Run one sync pass, or keep running passes for --duration when --loop is set.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("loop") {
			cfg.Sync.Loop, _ = cmd.Flags().GetBool("loop")
		}
		if cmd.Flags().Changed("duration") {
			cfg.Sync.Duration, _ = cmd.Flags().GetDuration("duration")
		}

		application, err := newApp(cfg, log)
		if err != nil {
			return err
		}

		if cfg.Sync.Loop {
			_, err = application.RunFor(cmd.Context(), cfg.Sync.Duration)
		} else {
			_, err = application.RunOnce(cmd.Context())
		}
		return err
	},
}

func init() {
	syncCmd.Flags().Bool("loop", false, "Repeat passes until --duration has elapsed")
	syncCmd.Flags().Duration("duration", 0, "Time budget for --loop (default from config, 3h)")
	rootCmd.AddCommand(syncCmd)
}
