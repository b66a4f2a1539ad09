package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pocketpin/internal/app"
	"pocketpin/internal/config"
	"pocketpin/internal/logger"
	"pocketpin/internal/pinboard"
	"pocketpin/internal/pocket"
	"pocketpin/internal/requester"
)

var rootCmd = &cobra.Command{
	Use:           "pocketpin",
	Short:         "Mirror Pocket saves into Pinboard",
	Long:          "Copy every item saved in Pocket to Pinboard, tagged so that later runs resume where the last one stopped.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file (default: ./config.yaml if present)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: error, warn, info or debug")
}

// loadConfig loads the configuration and applies the persistent flags.
func loadConfig(cmd *cobra.Command) (*config.Config, *logger.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cmd.Flags().Changed("log-level") {
		lvl, _ := cmd.Flags().GetString("log-level")
		if _, err := logger.ParseLevel(lvl); err != nil {
			return nil, nil, err
		}
		cfg.LogLevel = lvl
	}

	return cfg, logger.New(cfg.Level()), nil
}

func newRequester(cfg *config.Config, log *logger.Logger, name string, spacing time.Duration) *requester.Requester {
	return requester.New(name, spacing,
		requester.WithHTTPClient(&http.Client{Timeout: cfg.HTTP.Timeout}),
		requester.WithPolicy(cfg.RetryPolicy()),
		requester.WithLogger(log),
	)
}

func newSink(cfg *config.Config, log *logger.Logger) (*pinboard.Client, error) {
	client, err := pinboard.NewClient(
		cfg.Pinboard.BaseURL,
		cfg.Pinboard.AuthToken,
		cfg.Sync.Tag,
		newRequester(cfg, log, "pinboard", cfg.Pinboard.RateLimit),
		pinboard.WithLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Pinboard client: %w", err)
	}
	return client, nil
}

func newApp(cfg *config.Config, log *logger.Logger) (*app.App, error) {
	source, err := pocket.NewClient(
		cfg.Pocket.BaseURL,
		cfg.Pocket.ConsumerKey,
		cfg.Pocket.AccessToken,
		cfg.Sync.Tag,
		newRequester(cfg, log, "pocket", cfg.Pocket.RateLimit),
		pocket.WithLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Pocket client: %w", err)
	}

	sink, err := newSink(cfg, log)
	if err != nil {
		return nil, err
	}

	return app.NewApp(
		app.WithSource(source),
		app.WithSink(sink),
		app.WithLogger(log),
		app.WithPassInterval(cfg.Sync.PassInterval),
	), nil
}
