package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jjenkins/wcivf/internal/config"
	"github.com/jjenkins/wcivf/internal/logging"
	"github.com/jjenkins/wcivf/internal/store"
	"github.com/jjenkins/wcivf/internal/telemetry"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Version is set at build time
var Version = "dev"

var (
	configFile string
	logLevel   string

	cfg       *config.Config
	log       *logrus.Logger
	providers *telemetry.Providers
)

var v = config.New()

var rootCmd = &cobra.Command{
	Use:   "wcivf",
	Short: "Import UK election and ballot data",
	Long: `wcivf keeps a local database of UK elections, ballots, posts and candidacies
in step with the candidates registry and the elections boundary service.

Examples:
  # Full import from the bulk snapshot
  wcivf import-ballots

  # Only ballots for current elections
  wcivf import-ballots --current

  # Serve the read-only JSON API
  wcivf serve --port 8080`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if providers == nil {
			return nil
		}
		return providers.Shutdown(context.Background())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a config file (default ./config.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	_ = v.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(v, configFile)
	if err != nil {
		return err
	}

	log, err = logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}

	providers, err = telemetry.Init(cmd.Context(), cfg.Telemetry, "wcivf", Version)
	if err != nil {
		return fmt.Errorf("failed to initialise telemetry: %w", err)
	}

	return nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			log.Warn("Received interrupt signal, shutting down...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}

// openStore connects to the configured database
func openStore(ctx context.Context) (*sql.DB, *store.Store, error) {
	if err := cfg.RequireDatabase(); err != nil {
		return nil, nil, err
	}

	log.Info("Connecting to database...")
	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, store.New(db), nil
}
