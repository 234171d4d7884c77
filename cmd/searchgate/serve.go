package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/searchgate/internal/config"
	dbRedis "github.com/kailas-cloud/searchgate/internal/db/redis"
	"github.com/kailas-cloud/searchgate/internal/governor"
	logpkg "github.com/kailas-cloud/searchgate/internal/logger"
	"github.com/kailas-cloud/searchgate/internal/memguard"
	"github.com/kailas-cloud/searchgate/internal/metrics"
	"github.com/kailas-cloud/searchgate/internal/parser"
	"github.com/kailas-cloud/searchgate/internal/repository/accessstats"
	"github.com/kailas-cloud/searchgate/internal/session"
	"github.com/kailas-cloud/searchgate/internal/transport/backend"
	chiTransport "github.com/kailas-cloud/searchgate/internal/transport/chi"
	healthuc "github.com/kailas-cloud/searchgate/internal/usecase/health"
	searchuc "github.com/kailas-cloud/searchgate/internal/usecase/search"
	"github.com/kailas-cloud/searchgate/internal/version"
)

func newServeCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "config file (default config/$ENV.yaml)")
	return cmd
}

func runServe(ctx context.Context, configPath string) error {
	env := config.GetEnv()
	if configPath == "" {
		configPath = config.FindConfigPath(env)
	}

	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting searchgate",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.String("config", configPath),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("backend", cfg.Backend.BaseURL),
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Register metrics explicitly (no init())
	metrics.RegisterSearchMetrics()
	metrics.RegisterHTTPMetrics()

	// Optional statistics store. Keep the interfaces nil (not typed nil
	// pointers) when the database is not configured.
	var (
		pinger healthuc.DBPinger
		stats  searchuc.StatsRecorder
		blocks chiTransport.BlockStats
	)
	if cfg.Database.Enabled() {
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
		if err != nil {
			return fmt.Errorf("create %s store: %w", cfg.Database.Driver, err)
		}
		defer store.Close()

		readiness := time.Duration(cfg.Database.ReadinessTimeout) * time.Second
		if err := store.WaitForReady(ctx, readiness); err != nil {
			return fmt.Errorf("database not ready: %w", err)
		}
		logger.Info("Connected to database",
			zap.String("driver", cfg.Database.Driver),
			zap.Strings("addrs", cfg.Database.Addrs))

		statsRepo := accessstats.New(store, time.Duration(cfg.Database.StatsTTLHours)*time.Hour)
		pinger, stats, blocks = store, statsRepo, statsRepo
	}

	stopwords, err := buildStopwords(cfg.Stopwords)
	if err != nil {
		return err
	}
	queryParser := parser.New(stopwords)

	gov := governor.New(cfg.GovernorSettings(), governor.SystemClock{}, logger)

	sessions, err := session.New(cfg.SessionSettings(), logger)
	if err != nil {
		return fmt.Errorf("create session coordinator: %w", err)
	}
	defer sessions.Close()

	backendClient := backend.NewClient(&backend.Config{
		BaseURL: cfg.Backend.BaseURL,
		APIKey:  cfg.Backend.APIKey,
		Timeout: time.Duration(cfg.Backend.TimeoutSec) * time.Second,
		Logger:  logger,
	})

	searchSvc := searchuc.New(queryParser, gov, sessions, backendClient, stats, nil, cfg.SearchSettings(), logger)
	healthSvc := healthuc.New(pinger, backendClient)

	trusted, err := cfg.HTTP.TrustedProxyPrefixes()
	if err != nil {
		return fmt.Errorf("trusted proxies: %w", err)
	}

	server := chiTransport.NewServer(searchSvc, sessions, gov, blocks, healthSvc, logger)
	router := chiTransport.NewRouter(server, chiTransport.RouterConfig{
		AdminKeys:      cfg.Auth.AdminKeys,
		ExtendedKeys:   cfg.Auth.ExtendedKeys,
		TrustedProxies: trusted,
	}, logger)

	watchdog := memguard.New(
		uint64(cfg.Memory.HeapLimitMB)<<20,
		time.Duration(cfg.Memory.PollIntervalSec)*time.Second,
		logger,
		gov.Clear,
		sessions.Cleanup,
	)
	go watchdog.Run(ctx)

	rl := &reloader{current: cfg, governor: gov, parser: queryParser, sessions: sessions, logger: logger}
	go func() {
		if err := config.Watch(ctx, configPath, logger, rl.apply); err != nil {
			logger.Warn("Config hot reload disabled", zap.Error(err))
		}
	}()

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
	return nil
}

// buildStopwords loads the configured stopword file, or the built-in set,
// and adds the extra words.
func buildStopwords(cfg config.StopwordsConfig) (parser.Stopwords, error) {
	set := parser.DefaultStopwords()
	if cfg.File != "" {
		loaded, err := loadStopwordsFile(cfg.File)
		if err != nil {
			return nil, err
		}
		set = loaded
	}
	set.Add(cfg.Extra...)
	return set, nil
}
