package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/good-yellow-bee/fleetwatch/internal/alerting"
	"github.com/good-yellow-bee/fleetwatch/internal/api"
	"github.com/good-yellow-bee/fleetwatch/internal/api/health"
	"github.com/good-yellow-bee/fleetwatch/internal/hub"
	"github.com/good-yellow-bee/fleetwatch/internal/ingest"
	"github.com/good-yellow-bee/fleetwatch/internal/metrics"
	"github.com/good-yellow-bee/fleetwatch/internal/storage"
	"github.com/good-yellow-bee/fleetwatch/pkg/config"
)

var (
	configFile string
	httpAddr   string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "fleetwatch-server",
	Short: "FleetWatch Server - Bus fleet cleanliness inspection backend",
	Long: `FleetWatch Server records bus cleanliness inspections, evaluates
time-windowed alert rules, and fans live notifications out to connected
viewers.`,
	RunE: runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("fleetwatch-server %s\n", config.Version)
		fmt.Printf("  commit: %s\n", config.Commit)
		fmt.Printf("  built:  %s\n", config.BuildTime)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (optional)")
	rootCmd.PersistentFlags().StringVarP(&httpAddr, "address", "a", "", "HTTP listen address (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	var cfg *Config

	if configFile != "" {
		var err error
		cfg, err = LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	} else {
		cfg = DefaultConfig()
	}

	// Override with CLI flags
	if httpAddr != "" {
		cfg.Server.HTTPAddress = httpAddr
	}
	cfg.Verbose = verbose

	// Get JWT secret from environment
	jwtSecret := os.Getenv("FLEETWATCH_JWT_SECRET")
	if jwtSecret == "" {
		return fmt.Errorf("FLEETWATCH_JWT_SECRET environment variable is required")
	}

	// Auto-create data directory
	dbDir := filepath.Dir(cfg.Database.Path)
	if err := os.MkdirAll(dbDir, 0750); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	// Initialize storage
	store := storage.NewSQLiteStorage(cfg.Database.Path)
	if err := store.Open(); err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	if err := store.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	// Create default admin user on first run
	if err := store.EnsureAdminUser(); err != nil {
		return fmt.Errorf("ensure admin user: %w", err)
	}

	log.Printf("database initialized at %s", cfg.Database.Path)

	// Rule engine, with thresholds from the rules file when configured
	ruleCfg := alerting.DefaultConfig()
	if cfg.Alerting.RulesFile != "" {
		var err error
		ruleCfg, err = alerting.LoadConfigFromFile(cfg.Alerting.RulesFile)
		if err != nil {
			return fmt.Errorf("load alert rules: %w", err)
		}
	}
	engine, err := alerting.NewEngine(ruleCfg)
	if err != nil {
		return fmt.Errorf("create rule engine: %w", err)
	}

	// Notification hub and ingestion pipeline
	h := hub.NewHub(&hub.Options{SendTimeout: cfg.Hub.SendTimeout})
	svc := ingest.NewService(store, engine, h)

	// HTTP API
	apiCfg := &api.Config{
		Address:         cfg.Server.HTTPAddress,
		JWTSecret:       []byte(jwtSecret),
		AccessTokenTTL:  cfg.Auth.AccessTokenTTL,
		RefreshTokenTTL: cfg.Auth.RefreshTokenTTL,
		LoginRatePerMin: cfg.Auth.LoginRatePerMin,
		LoginRateBurst:  cfg.Auth.LoginRateBurst,
		Verbose:         cfg.Verbose,
	}
	srv, err := api.New(apiCfg, store, h, svc)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}
	srv.RegisterHealthChecker(health.NewSQLiteChecker(store.DB()))

	metricsSrv := metrics.NewServer(cfg.Server.MetricsAddress)

	// Setup signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("received signal %v, shutting down...", sig)
		cancel()
	}()

	log.Printf("starting fleetwatch-server %s", config.Version)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Run(gctx)
	})

	g.Go(func() error {
		return metricsSrv.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsSrv.Shutdown(shutdownCtx)
	})

	// Hot-reload alert thresholds while running
	if cfg.Alerting.RulesFile != "" {
		watcher, err := alerting.NewWatcher(cfg.Alerting.RulesFile, engine)
		if err != nil {
			return fmt.Errorf("watch alert rules: %w", err)
		}
		g.Go(func() error {
			return watcher.Run(gctx)
		})
	}

	// The rules watcher returns ctx.Err() when the shutdown signal cancels
	// the group; that is a clean exit, not a failure.
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run server: %w", err)
	}

	log.Printf("server stopped")
	return nil
}
