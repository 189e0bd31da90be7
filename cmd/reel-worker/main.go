// Command reel-worker runs the race photo ingestion and reel assembly pipeline.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/race-reels/internal/blobstore"
	"github.com/yourusername/race-reels/internal/compositor"
	"github.com/yourusername/race-reels/internal/config"
	"github.com/yourusername/race-reels/internal/extractor"
	"github.com/yourusername/race-reels/internal/httpclient"
	"github.com/yourusername/race-reels/internal/ledger"
	"github.com/yourusername/race-reels/internal/logger"
	"github.com/yourusername/race-reels/internal/service"
	"github.com/yourusername/race-reels/internal/source"
	"github.com/yourusername/race-reels/internal/tracing"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	configFile string
	cfg        *config.Config
	appLogger  *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:           "reel-worker",
	Short:         "Race photo ingestion and reel assembly worker",
	Long:          `Stores race photos by bib number and assembles per-runner highlight reels.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadWithDefaults(configFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		if err := config.LoadSecretsFromAWS(ctx, cfg); err != nil {
			return fmt.Errorf("failed to load secrets: %w", err)
		}
		if err := config.Validate(cfg); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		appLogger = logger.NewLogger(cfg.App.LogLevel)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config/config.yaml", "Path to configuration file")
	rootCmd.AddCommand(newInvokeCmd(), newServeCmd(), newSightingsCmd(), newMigrateCmd(), newVersionCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		exitOnRequestFailure(err)
		log.Fatalf("Error: %v", err)
	}
}

// pipeline holds the wired services and the resources to release.
type pipeline struct {
	invoker tracing.Invoker
	ledgers *ledger.Ledgers
	http    *httpclient.Client
}

func (p *pipeline) Close() {
	if err := p.ledgers.Close(); err != nil {
		appLogger.WithError(err).Warn("Failed to close ledger")
	}
	if err := p.http.Close(); err != nil {
		appLogger.WithError(err).Warn("Failed to close HTTP client")
	}
}

func buildPipeline(ctx context.Context) (*pipeline, error) {
	httpCfg := httpclient.DefaultConfig()
	if cfg.HTTP.TimeoutSeconds > 0 {
		httpCfg.Timeout = time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second
	}
	httpCfg.MaxRetries = cfg.HTTP.MaxRetries
	httpCfg.RateLimit = cfg.HTTP.RateLimit
	httpCfg.CircuitBreakerMax = cfg.HTTP.CircuitBreakerMax
	client := httpclient.New(httpCfg, appLogger)

	store, err := blobstore.New(ctx, cfg)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to create blob store: %w", err)
	}

	ledgers, err := ledger.Open(ctx, cfg, appLogger)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	src := source.NewDriveClient(client, cfg.Source.BaseURL, cfg.Source.AccessToken, appLogger)
	ext := extractor.NewCachedExtractor(
		extractor.NewHTTPClient(client, cfg.Extractor.URL, appLogger),
		cfg.ExtractorCacheTTL(),
		appLogger,
	)
	comp := compositor.NewFFmpeg(cfg.Compositor.FFmpegPath, cfg.Compositor.ExtraArgs, appLogger)

	ingestion := service.NewIngestionService(src, ext, store, ledgers.Sightings, ledgers.Status, appLogger)
	reels := service.NewReelService(ledgers.Sightings, store, comp, cfg.Scratch.Root, appLogger)

	tracer, err := tracing.Initialize(tracing.Config{
		Enabled:        cfg.Tracing.Enabled,
		ServiceName:    cfg.App.Name,
		ServiceVersion: Version,
		DaemonAddr:     cfg.Tracing.DaemonAddr,
	}, appLogger)
	if err != nil {
		ledgers.Close()
		client.Close()
		return nil, err
	}

	return &pipeline{
		invoker: tracer.Wrap(service.NewDispatcher(ingestion, reels, appLogger)),
		ledgers: ledgers,
		http:    client,
	}, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "version",
		Short:             "Print build information",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "reel-worker %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
		},
	}
}
