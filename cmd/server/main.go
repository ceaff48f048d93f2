/*
main.go - HTTP server entry point

PURPOSE:
  Runs the ledger engine behind the HTTP intake/query API.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Open the audit store (optional)
  3. Start the engine
  4. Configure the chi router
  5. Serve until SIGINT/SIGTERM

GRACEFUL SHUTDOWN:
  On signal:
  1. Stop accepting new connections (15s drain)
  2. Shut the engine down through its ordered queue
  3. Record final balances to the audit store
  4. Exit non-zero if the engine halted on an internal inconsistency

FLAGS:
  -port       HTTP server port (default: 8080)
  -audit-db   SQLite path for the audit journal (optional)
  -log-level  debug | info | warn | error (default: info)

SEE ALSO:
  - api/server.go: Router configuration
  - ledger/engine.go: Engine lifecycle
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atzewgene/toy-payments-engine/api"
	"github.com/atzewgene/toy-payments-engine/ledger"
	"github.com/atzewgene/toy-payments-engine/logging"
	"github.com/atzewgene/toy-payments-engine/store/sqlite"
)

func main() {
	port := flag.Int("port", 8080, "HTTP server port")
	auditDB := flag.String("audit-db", "", "SQLite path for the audit journal (optional)")
	logLevel := flag.String("log-level", "info", "debug | info | warn | error")
	flag.Parse()

	log := logging.New(*logLevel)

	var audit *sqlite.Store
	if *auditDB != "" {
		store, err := sqlite.New(*auditDB)
		if err != nil {
			log.Error("failed to open audit store", slog.Any("error", err))
			os.Exit(1)
		}
		defer store.Close()
		audit = store
	}

	opts := ledger.Options{Logger: log}
	if audit != nil {
		opts.Audit = audit
	}
	eng := ledger.NewEngine(opts)

	handler := api.NewHandler(eng, log)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server starting", slog.Int("port", *port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", slog.Any("error", err))
	}

	snap, err := eng.Shutdown(ctx)
	if err != nil {
		log.Error("engine halted", slog.Any("error", err))
		os.Exit(1)
	}

	if audit != nil {
		if err := audit.RecordBalances(ctx, snap); err != nil {
			log.Warn("recording final balances failed", slog.Any("error", err))
		}
	}

	log.Info("engine stopped", slog.Int("clients", len(snap)))
}
