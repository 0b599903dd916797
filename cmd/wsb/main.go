package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wsb-sentiment/internal/db"
	"wsb-sentiment/internal/logger"
	"wsb-sentiment/internal/pipeline"
	"wsb-sentiment/internal/report"
	"wsb-sentiment/internal/sentiment"
	"wsb-sentiment/internal/tickers"
	"wsb-sentiment/internal/trace"
)

func main() {
	if err := initializeSystem(); err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer trace.Shutdown(context.Background())

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigc
		logger.Warn(ctx, "Interrupt received, shutting down")
		cancel()
	}()

	compressOldLogs(ctx)

	cmd, args := splitCommand(os.Args[1:])

	var err error
	switch cmd {
	case "run":
		err = runCmd(ctx, args)
	case "summarize":
		err = summarizeCmd(ctx, args)
	case "correlate":
		err = correlateCmd(ctx, args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\nusage: wsb [run|summarize|correlate] [flags]\n", cmd)
		os.Exit(2)
	}
	if err != nil {
		logger.ErrorWithErr(ctx, "Command failed", err, "command", cmd)
		os.Exit(1)
	}
}

// splitCommand separates the subcommand from its flags. A missing, empty,
// or flag-like first argument means the default "run" command.
func splitCommand(args []string) (string, []string) {
	if len(args) == 0 || args[0] == "" || args[0][0] == '-' {
		return "run", args
	}
	return args[0], args[1:]
}

// runCmd executes the daily pipeline. Per-item skips degrade the run but
// still exit zero; only a total collection or persistence failure fails.
func runCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	dryRun := fs.Bool("dry-run", false, "use static posts and prices, no network")
	configPath := fs.String("config", "config.yaml", "path to config file")
	fs.Parse(args)

	cfg, err := loadConfig(ctx, *configPath)
	if err != nil {
		return err
	}
	if os.Getenv("WSB_LOG_DIR") == "" {
		os.Setenv("WSB_LOG_DIR", cfg.Output.LogDir)
	}

	database, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	p := pipeline.New(
		initializeCollector(ctx, cfg, *dryRun),
		tickers.NewExtractor(),
		sentiment.NewScorer(sentiment.Params{
			PositiveThreshold: cfg.Sentiment.PositiveThreshold,
			NegativeThreshold: cfg.Sentiment.NegativeThreshold,
			MaxTextBytes:      cfg.Sentiment.MaxTextBytes,
		}),
		db.NewRepository(database),
		report.NewWriter(cfg.Output.ResultsDir, cfg.Analysis.TopN),
		cfg,
	)

	summary, err := p.Run(ctx)
	if err != nil {
		return err
	}
	printJSON(summary)
	return nil
}

// summarizeCmd prints recent run summaries and the latest rankings.
func summarizeCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("summarize", flag.ExitOnError)
	days := fs.Int("days", 7, "how many days of results to show")
	configPath := fs.String("config", "config.yaml", "path to config file")
	fs.Parse(args)

	cfg, err := loadConfig(ctx, *configPath)
	if err != nil {
		return err
	}
	database, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()
	repo := db.NewRepository(database)

	results, err := repo.DailyResults(*days)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("no results yet - run `wsb run` first")
		return nil
	}

	latest := results[0]
	rankings, err := repo.RankingsOn(latest.Date, latest.WindowDays)
	if err != nil {
		return err
	}

	printJSON(map[string]any{
		"daily_results":   results,
		"latest_rankings": rankings,
	})
	return nil
}

// correlateCmd backtests recent rankings against realized prices.
func correlateCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("correlate", flag.ExitOnError)
	days := fs.Int("days", 30, "how many days of rankings to backtest")
	dryRun := fs.Bool("dry-run", false, "use static prices, no network")
	configPath := fs.String("config", "config.yaml", "path to config file")
	fs.Parse(args)

	cfg, err := loadConfig(ctx, *configPath)
	if err != nil {
		return err
	}
	database, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	p := pipeline.New(nil, nil, nil, db.NewRepository(database),
		report.NewWriter(cfg.Output.ResultsDir, cfg.Analysis.TopN), cfg)

	start := time.Now()
	accuracy, err := p.Correlate(ctx, initializePriceSource(ctx, cfg, *dryRun), *days)
	if err != nil {
		return err
	}
	logger.Info(ctx, "Correlation completed",
		"records", len(accuracy.Records),
		"duration", time.Since(start).String())

	// Records are in the database; the printed report carries aggregates.
	accuracy.Records = nil
	printJSON(accuracy)
	return nil
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Printf("failed to render output: %v", err)
		return
	}
	fmt.Println(string(b))
}
