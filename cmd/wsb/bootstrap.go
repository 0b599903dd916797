package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"wsb-sentiment/internal/collector"
	"wsb-sentiment/internal/collector/collectorobs"
	"wsb-sentiment/internal/db"
	"wsb-sentiment/internal/interfaces"
	"wsb-sentiment/internal/logger"
	"wsb-sentiment/internal/prices"
	"wsb-sentiment/internal/prices/pricesobs"
	"wsb-sentiment/internal/retry"
	"wsb-sentiment/internal/runlog"
	"wsb-sentiment/internal/store"
	"wsb-sentiment/internal/trace"
)

// initializeSystem loads .env and brings up logging and tracing.
func initializeSystem() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}
	return nil
}

// loadConfig reads config.yaml, falling back to built-in defaults when the
// file does not exist.
func loadConfig(ctx context.Context, path string) (*store.Config, error) {
	cfg, err := store.LoadConfig(path)
	if os.IsNotExist(err) {
		logger.Warn(ctx, "Config file not found, using defaults", "path", path)
		return store.DefaultConfig(), nil
	}
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", path)
		return nil, err
	}
	return cfg, nil
}

// compressOldLogs gzips run logs past the configured retention.
func compressOldLogs(ctx context.Context) {
	if v := os.Getenv("WSB_LOG_RETENTION_DAYS"); v != "" {
		var n int
		fmt.Sscanf(v, "%d", &n)
		if err := runlog.CompressOlder(n); err != nil {
			logger.Warn(ctx, "Failed to compress old run logs", "error", err)
		}
	}
}

// initializeCollector builds the post source. Dry runs use the static
// corpus; live runs use the JSON API with an HTML scrape fallback, and
// script-app credentials when the environment provides them.
func initializeCollector(ctx context.Context, cfg *store.Config, dryRun bool) collector.Source {
	if dryRun {
		logger.Warn(ctx, "Running in dry-run mode - using static post corpus")
		return collectorobs.Wrap(collector.NewStaticCollector())
	}

	opts := []collector.ClientOption{
		collector.WithUserAgent(cfg.Reddit.UserAgent),
		collector.WithHTTPClient(httpClient(cfg)),
		collector.WithRateLimit(cfg.HTTP.RequestsPerSecond),
		collector.WithRetryPolicy(retryPolicy(cfg)),
	}
	if id := os.Getenv("REDDIT_CLIENT_ID"); id != "" {
		logger.Info(ctx, "Using authenticated Reddit API access")
		opts = append(opts, collector.WithCredentials(collector.Credentials{
			ClientID:     id,
			ClientSecret: os.Getenv("REDDIT_CLIENT_SECRET"),
		}))
	} else {
		logger.Info(ctx, "Using unauthenticated Reddit API access")
	}

	api := collector.NewClient(opts...)
	fallback := collector.NewHTMLScraper(cfg.Reddit.UserAgent, httpTimeout(cfg))
	return collectorobs.Wrap(collector.NewService(api, fallback))
}

// initializePriceSource builds the close-price source for correlation.
// Dry runs stay offline; live runs hit Stooq behind a range cache.
func initializePriceSource(ctx context.Context, cfg *store.Config, dryRun bool) interfaces.PriceSource {
	if dryRun {
		logger.Warn(ctx, "Running in dry-run mode - using static price data")
		return pricesobs.Wrap(prices.NewStaticSource())
	}

	client := prices.NewClient(
		prices.WithHTTPClient(httpClient(cfg)),
		prices.WithRateLimit(cfg.HTTP.RequestsPerSecond),
		prices.WithRetryPolicy(retryPolicy(cfg)),
	)
	return pricesobs.Wrap(prices.NewCachedSource(client))
}

// openDatabase opens (and migrates) the configured SQLite file.
func openDatabase(ctx context.Context, cfg *store.Config) (*db.Database, error) {
	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to open database", err, "path", cfg.Database.Path)
		return nil, err
	}
	logger.Info(ctx, "Database ready", "path", cfg.Database.Path)
	return database, nil
}

func httpClient(cfg *store.Config) *http.Client {
	return &http.Client{Timeout: httpTimeout(cfg)}
}

func httpTimeout(cfg *store.Config) time.Duration {
	return time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second
}

func retryPolicy(cfg *store.Config) retry.Policy {
	return retry.Policy{
		MaxAttempts: cfg.HTTP.RetryMaxAttempts,
		BaseDelay:   time.Duration(cfg.HTTP.RetryBaseDelayMs) * time.Millisecond,
		MaxDelay:    10 * time.Second,
	}
}
