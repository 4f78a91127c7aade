package main

//
//  @title           nsepulse API
//  @version         1.0
//  @description     NSE daily market data ingestion & history service.
//  @host            localhost:8080
//  @BasePath        /
//  @schemes         http
//
//  @tag.name        history
//  @tag.description Endpoints for querying daily price history
//
//  @tag.name        ledger
//  @tag.description Download attempt bookkeeping per date
//
//  @tag.name        health
//  @tag.description Liveness and readiness probes

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/tickerplot/nsepulse/config"
	"github.com/tickerplot/nsepulse/internal/app"
	"github.com/tickerplot/nsepulse/internal/fetch"
	"github.com/tickerplot/nsepulse/internal/ingestion"
	"github.com/tickerplot/nsepulse/internal/ledger"
	"github.com/tickerplot/nsepulse/internal/logger"
	"github.com/tickerplot/nsepulse/internal/rename"
	"github.com/tickerplot/nsepulse/internal/storage"
)

// startServer initializes and starts the HTTP server in a separate goroutine.
func startServer(router http.Handler, port string) *http.Server {
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.L().Info().Str("port", port).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Fatal().Err(err).Msg("server failed to start")
		}
	}()

	return server
}

// gracefulShutdown terminates the HTTP server and cleans up resources when an
// OS interrupt signal (SIGINT, SIGTERM) is received.
func gracefulShutdown(ctx context.Context, server *http.Server, cleanup func()) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	logger.L().Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.L().Fatal().Err(err).Msg("server forced to shutdown")
	}

	cleanup()
	logger.L().Info().Msg("server exited gracefully")
}

// confirmRange gates long backfills behind an interactive prompt. Ranges up
// to confirmDays, or any range with yes set, pass straight through.
func confirmRange(days, confirmDays int, yes bool, in io.Reader, out io.Writer) bool {
	if yes || days <= confirmDays {
		return true
	}
	fmt.Fprintf(out, "about to ingest %d days (more than %d); continue? [y/N]: ", days, confirmDays)
	line, _ := bufio.NewReader(in).ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// runIngest executes the full ingestion pipeline for the given date range.
func runIngest(ctx context.Context, fromStr, toStr string, yes bool) error {
	cfg := config.AppConfig

	from, err := ingestion.ParseDate(fromStr)
	if err != nil {
		return err
	}
	to, err := ingestion.ParseDate(toStr)
	if err != nil {
		return err
	}
	dates, err := ingestion.DateRange(from, to)
	if err != nil {
		return err
	}

	if !confirmRange(len(dates), cfg.Ingest.ConfirmDays, yes, os.Stdin, os.Stderr) {
		return fmt.Errorf("ingestion of %d days not confirmed", len(dates))
	}

	db, err := app.InitPostgres(cfg)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := app.RunMigrations(db); err != nil {
		return err
	}

	httpClient := &http.Client{Timeout: time.Duration(cfg.NSE.TimeoutSeconds) * time.Second}
	orch := ingestion.NewOrchestrator(
		fetch.NewNSEFetcher(httpClient, cfg.NSE.BhavURL, cfg.NSE.DelivURL),
		ledger.New(db, cfg.Ingest.GraceDays),
		storage.NewHistoryRepository(db),
		fetch.NewNSERenameSource(httpClient, cfg.NSE.RenameURL),
		time.Duration(cfg.Ingest.PaceMinMs)*time.Millisecond,
		time.Duration(cfg.Ingest.PaceMaxMs)*time.Millisecond,
	)

	sum, err := orch.Run(ctx, from, to)
	logger.L().Info().
		Int("ingested", sum.Ingested).
		Int("skipped", sum.Skipped).
		Int("not_found", sum.NotFound).
		Int("failed", sum.Failed).
		Int("records", sum.Records).
		Int("rename_hops", sum.RenameHops).
		Msg("ingestion summary")
	return err
}

// main is the entry point of the nsepulse application.
//
// Modes (selected via --mode flag):
//   - ingest: Downloads and stores daily market data for a date range.
//   - api:    Starts the REST API exposing ingested history.
//
// Flags:
//   - --mode: Execution mode ("ingest" or "api"). Default: "ingest".
//   - --from: First date to ingest, DD-MM-YYYY or "today". Default: "today".
//   - --to:   Last date to ingest, DD-MM-YYYY or "today". Default: "today".
//   - --yes:  Skip the long-range confirmation prompt.
//   - --port: Port for API mode. Defaults to value from config (SERVER_PORT).
func main() {
	ctx := context.Background()

	config.LoadConfig()
	logger.Init()

	mode := flag.String("mode", "ingest", "Mode: ingest or api")
	from := flag.String("from", "today", "First date to ingest (DD-MM-YYYY or 'today')")
	to := flag.String("to", "today", "Last date to ingest (DD-MM-YYYY or 'today')")
	yes := flag.Bool("yes", false, "Skip confirmation for long date ranges")
	port := flag.String("port", config.AppConfig.Server.Port, "Port for API mode")
	flag.Parse()

	switch *mode {
	case "ingest":
		logger.L().Info().Str("from", *from).Str("to", *to).Msg("running ingestion")
		if err := runIngest(ctx, *from, *to, *yes); err != nil {
			if errors.Is(err, rename.ErrNoEvents) {
				logger.L().Error().Err(err).Msg("rename propagation found nothing to apply")
				os.Exit(1)
			}
			logger.L().Fatal().Err(err).Msg("ingestion failed")
		}
		logger.L().Info().Msg("ingestion completed successfully")

	case "api":
		logger.L().Info().Msg("starting API server")

		router, cleanup, err := app.InitializeApp()
		if err != nil {
			logger.L().Fatal().Err(err).Msg("app init error")
		}

		server := startServer(router, *port)
		gracefulShutdown(ctx, server, cleanup)

	default:
		logger.L().Fatal().Str("mode", *mode).Msg("unknown mode")
	}
}
