package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"NewsAggregator/internal/app"
	"NewsAggregator/internal/config"
	"NewsAggregator/internal/logging"
)

func main() {
	fetch := flag.Bool("fetch", false, "run one fetch trigger and exit")
	sourceSlug := flag.String("source", "", "fetch from a specific source slug only")
	seed := flag.Bool("seed", false, "seed default sources and categories, then exit")
	flag.Parse()

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	switch {
	case *seed:
		err = application.RunSeed(ctx)
	case *fetch:
		summary, runErr := application.RunFetch(ctx, *sourceSlug)
		if runErr == nil {
			fmt.Printf("Found %d active sources.\n", summary.SourcesFound)
			fmt.Printf("Dispatched %d fetch jobs. Check the queue for processing status.\n", summary.JobsDispatched)
		}
		err = runErr
	default:
		err = application.RunWorker(ctx)
	}

	if err != nil {
		logger.Error("application stopped", "error", err)
		os.Exit(1)
	}
}
