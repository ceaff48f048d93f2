/*
main.go - Payments CLI entry point

PURPOSE:
  Streams a CSV of transaction records through the ledger engine and
  prints the final per-client snapshot as CSV on stdout.

USAGE:
  payments [flags] <transactions.csv>

FLAGS:
  -verbose    Print soft-rejection diagnostics to stderr
  -audit-db   SQLite path for the audit journal (":memory:" works,
              but is only useful for poking at the schema)

EXIT CODES:
  0  All records processed; soft rejections do not fail the run
  1  Malformed input, I/O failure, or an internal ledger inconsistency

SEE ALSO:
  - csvio: Record decoding and snapshot rendering
  - ledger: The engine this drives
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/atzewgene/toy-payments-engine/csvio"
	"github.com/atzewgene/toy-payments-engine/ledger"
	"github.com/atzewgene/toy-payments-engine/logging"
	"github.com/atzewgene/toy-payments-engine/store/sqlite"
)

func main() {
	verbose := flag.Bool("verbose", false, "print soft-rejection diagnostics to stderr")
	auditDB := flag.String("audit-db", "", "SQLite path for the audit journal (optional)")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: payments [flags] <transactions.csv>")
		os.Exit(1)
	}

	if err := run(flag.Arg(0), *verbose, *auditDB, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "payments:", err)
		os.Exit(1)
	}
}

func run(csvPath string, verbose bool, auditDB string, out io.Writer) error {
	log := logging.Discard()
	if verbose {
		log = logging.New("debug")
	}

	var audit ledger.Auditor
	if auditDB != "" {
		store, err := sqlite.New(auditDB)
		if err != nil {
			return err
		}
		defer store.Close()
		audit = store
	}

	file, err := os.Open(csvPath)
	if err != nil {
		return err
	}
	defer file.Close()

	ctx := context.Background()
	eng := ledger.NewEngine(ledger.Options{Logger: log, Audit: audit})

	if err := csvio.ProcessInput(ctx, file, eng, log); err != nil {
		// Drain the engine so already-queued events are not lost, then
		// surface the input failure.
		if _, derr := eng.Shutdown(ctx); derr != nil {
			log.Error("engine shutdown after input failure", slog.Any("error", derr))
		}
		return err
	}

	snap, err := eng.Shutdown(ctx)
	if err != nil {
		return err
	}

	if store, ok := audit.(*sqlite.Store); ok {
		if err := store.RecordBalances(ctx, snap); err != nil {
			log.Warn("recording final balances failed", slog.Any("error", err))
		}
	}

	return csvio.WriteSnapshot(out, snap)
}
