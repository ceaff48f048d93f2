/*
Package sqlite provides the SQLite-backed audit store.

PURPOSE:
  Records every event the engine disposed of, plus the final balances
  report written once at shutdown. The store is write-only from the
  engine's perspective: nothing is ever read back to restore ledger state,
  it exists for after-the-fact audit and reporting.

APPEND-ONLY ENFORCEMENT:
  - No UPDATE statements on the events table
  - No DELETE statements on the events table
  The read methods exist for reporting and tests only.

KEY TABLES:
  events:   one row per disposed event, in processing order (seq)
  balances: final per-client balances, written once at shutdown

WAL MODE:
  Opened with WAL so trailing report queries do not block the engine
  goroutine's appends.

USAGE:
  store, err := sqlite.New("./audit.db")
  if err != nil { ... }
  defer store.Close()

  eng := ledger.NewEngine(ledger.Options{Audit: store})

SEE ALSO:
  - ledger/engine.go: The Auditor interface this implements
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/atzewgene/toy-payments-engine/ledger"
)

// Store implements ledger.Auditor on SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// New creates an audit store at the given database path. Use ":memory:"
// for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		seq     INTEGER PRIMARY KEY AUTOINCREMENT,
		kind    TEXT    NOT NULL,
		client  INTEGER NOT NULL,
		tx      INTEGER NOT NULL,
		amount  TEXT,
		outcome TEXT    NOT NULL,
		detail  TEXT    NOT NULL DEFAULT '',
		at      TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_client ON events(client);
	CREATE INDEX IF NOT EXISTS idx_events_outcome ON events(outcome);

	CREATE TABLE IF NOT EXISTS balances (
		client       INTEGER PRIMARY KEY,
		available    TEXT    NOT NULL,
		held         TEXT    NOT NULL,
		total        TEXT    NOT NULL,
		locked       INTEGER NOT NULL,
		finalized_at TIMESTAMP NOT NULL
	);`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// RecordEvent appends one disposed event to the journal. Runs on the
// engine goroutine, so failures are swallowed: audit must never stall or
// abort ledger processing. Callers who care inspect the journal afterward.
func (s *Store) RecordEvent(rec ledger.EventRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var amount sql.NullString
	if rec.Amount != nil {
		amount = sql.NullString{String: rec.Amount.String(), Valid: true}
	}
	_, _ = s.db.Exec(
		`INSERT INTO events (kind, client, tx, amount, outcome, detail, at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.Kind, rec.Client, rec.Tx, amount, string(rec.Outcome), rec.Detail, time.Now().UTC(),
	)
}

// RecordBalances writes the final snapshot, one row per client. Called
// once at shutdown.
func (s *Store) RecordBalances(ctx context.Context, snap ledger.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, cb := range snap {
		_, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO balances (client, available, held, total, locked, finalized_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			cb.Client,
			ledger.Round(cb.Available).String(),
			ledger.Round(cb.Held).String(),
			ledger.Round(cb.Total).String(),
			cb.Locked, now,
		)
		if err != nil {
			return fmt.Errorf("failed to record balance for client %d: %w", cb.Client, err)
		}
	}
	return tx.Commit()
}

// FinalBalances returns the recorded final snapshot, ordered by client id.
// Reporting only; this is never fed back into an engine.
func (s *Store) FinalBalances(ctx context.Context) ([]ledger.ClientBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT client, available, held, total, locked FROM balances ORDER BY client`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.ClientBalance
	for rows.Next() {
		var (
			cb                     ledger.ClientBalance
			available, held, total string
		)
		if err := rows.Scan(&cb.Client, &available, &held, &total, &cb.Locked); err != nil {
			return nil, err
		}
		if cb.Available, err = decimal.NewFromString(available); err != nil {
			return nil, err
		}
		if cb.Held, err = decimal.NewFromString(held); err != nil {
			return nil, err
		}
		if cb.Total, err = decimal.NewFromString(total); err != nil {
			return nil, err
		}
		out = append(out, cb)
	}
	return out, rows.Err()
}

// EventCount returns the journal row count for one outcome, for reporting.
func (s *Store) EventCount(ctx context.Context, outcome ledger.Outcome) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM events WHERE outcome = ?`, string(outcome)).Scan(&n)
	return n, err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
