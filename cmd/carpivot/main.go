package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"carpivot/internal/config"
	"carpivot/internal/logger"
	"carpivot/internal/pipeline"
	"carpivot/internal/report"
	"carpivot/internal/storage"
)

var errUsage = errors.New("usage")

func main() {
	cfg, err := config.Load()
	must(err)
	log := logger.New(cfg.LogLevel)

	err = run(context.Background(), os.Args[1:], cfg, log, os.Stdout)
	if errors.Is(err, errUsage) {
		usage()
		os.Exit(1)
	}
	must(err)
}

// run executes one command. The ledger is closed before it returns, so
// main may exit on the error.
func run(ctx context.Context, args []string, cfg config.Config, log *logger.Logger, stdout io.Writer) error {
	switch {
	case len(args) == 1 && args[0] == "runs":
		if !cfg.LedgerEnabled() {
			return fmt.Errorf("RUN_LEDGER_PATH is not set")
		}
		db, err := storage.Open(cfg.RunLedgerPath)
		if err != nil {
			return err
		}
		defer db.Close()
		runs, err := db.ListRuns(cfg.RunsListLimit)
		if err != nil {
			return err
		}
		report.RenderRuns(stdout, runs)
		return nil
	case len(args) == 2:
		var db *storage.DB
		if cfg.LedgerEnabled() {
			var err error
			db, err = storage.Open(cfg.RunLedgerPath)
			if err != nil {
				return err
			}
			defer db.Close()
		}
		svc := pipeline.NewService(cfg, log, db)
		res, err := svc.Run(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		report.RenderRun(stdout, res, args[1])
		return nil
	default:
		return errUsage
	}
}

func usage() {
	fmt.Println("usage: carpivot <input.jsonl> <output.xlsx>")
	fmt.Println("       carpivot runs")
	fmt.Println("environment (or .env):")
	fmt.Println("  LOG_LEVEL=debug|info|warn|error")
	fmt.Println("  TARGET_COUNTRY=CH  MILEAGE_UNIT=kilometer")
	fmt.Println("  MISSING_LISTINGS=fill|skip  STRICT_ATTRIBUTES=false")
	fmt.Println("  RUN_LEDGER_PATH=./data/runs.db  RUNS_LIST_LIMIT=20")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
