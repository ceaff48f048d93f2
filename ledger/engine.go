/*
engine.go - Single-writer event engine

PURPOSE:
  The Engine owns every Account plus the global transaction-id registry,
  and applies all events through exactly one goroutine. Producers submit
  events over a bounded channel; when it is full, Submit blocks, giving
  backpressure so a fast input source cannot outpace ledger processing.

CONCURRENCY MODEL:
  One goroutine reads the channel and mutates state. Nothing else ever
  touches the account map, so no mutex discipline is needed. Balance
  queries and shutdown flow through the same ordered channel as mutations,
  which means:
    - every event has a total order
    - a query never observes a torn update
    - the shutdown snapshot reflects every previously submitted event

ERROR POLICY:
  Soft errors are logged at the dispatch boundary and the event is
  discarded. An internal inconsistency halts the loop immediately: the
  engine's own bookkeeping is broken and continuing could corrupt
  subsequent balances. The fatal error then surfaces out of every later
  Submit/Balance/Shutdown call so the process can exit non-zero.

SEE ALSO:
  - account.go: Where event semantics are applied
  - snapshot.go: The immutable final state Shutdown yields
*/
package ledger

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"
)

// DefaultQueueSize bounds the event channel: up to 10k in-flight events
// before producers block.
const DefaultQueueSize = 10_000

// =============================================================================
// EVENTS - Tagged union over the five event kinds
// =============================================================================

// Event is one typed intake event. Exactly the five exported types below
// implement it; the engine matches them exhaustively at a single dispatch
// point.
type Event interface {
	event()
}

// Deposit credits amount to a client, creating the account if needed.
type Deposit struct {
	Tx     TransactionID
	Client ClientID
	Amount decimal.Decimal
}

// Withdrawal debits amount from a client, creating the account if needed.
type Withdrawal struct {
	Tx     TransactionID
	Client ClientID
	Amount decimal.Decimal
}

// Dispute freezes a prior deposit's funds pending resolution.
type Dispute struct {
	Tx     TransactionID
	Client ClientID
}

// Resolve releases a disputed deposit's funds back to available.
type Resolve struct {
	Tx     TransactionID
	Client ClientID
}

// Chargeback reverses a disputed deposit and locks the account.
type Chargeback struct {
	Tx     TransactionID
	Client ClientID
}

func (Deposit) event()    {}
func (Withdrawal) event() {}
func (Dispute) event()    {}
func (Resolve) event()    {}
func (Chargeback) event() {}

// Control messages ride the same channel so they are ordered with events.

type balanceQuery struct {
	client ClientID
	reply  chan balanceReply
}

type balanceReply struct {
	balance ClientBalance
	err     error
}

type shutdownSignal struct{}

func (balanceQuery) event()   {}
func (shutdownSignal) event() {}

// =============================================================================
// AUDIT HOOK
// =============================================================================

// Outcome classifies how the engine disposed of an event.
type Outcome string

const (
	OutcomeApplied  Outcome = "applied"
	OutcomeRejected Outcome = "rejected"
)

// EventRecord is the audit view of one processed event.
type EventRecord struct {
	Kind    string
	Client  ClientID
	Tx      TransactionID
	Amount  *decimal.Decimal // nil for dispute-lifecycle events
	Outcome Outcome
	Detail  string // rejection reason, empty when applied
}

// Auditor receives a record for every event the engine disposes of.
// Implementations must not block for long; they run on the engine goroutine.
type Auditor interface {
	RecordEvent(rec EventRecord)
}

// =============================================================================
// ENGINE
// =============================================================================

// Options configures a new Engine. The zero value is usable.
type Options struct {
	// Logger receives soft-rejection diagnostics at debug level and the
	// fatal diagnostic at error level. Nil discards everything.
	Logger *slog.Logger

	// QueueSize bounds the event channel. Zero means DefaultQueueSize.
	QueueSize int

	// Audit, when set, receives a record per disposed event.
	Audit Auditor
}

// Engine serializes all events through a single goroutine and dispatches
// them to client accounts.
type Engine struct {
	log    *slog.Logger
	audit  Auditor
	events chan Event

	// Closed by the run goroutine; final and fatal are safe to read after.
	done  chan struct{}
	final Snapshot
	fatal error

	// Owned exclusively by the run goroutine.
	accounts map[ClientID]*Account
	seen     map[TransactionID]struct{}
}

// NewEngine starts the engine goroutine and returns a handle ready for
// Submit. The caller must eventually call Shutdown.
func NewEngine(opts Options) *Engine {
	log := opts.Logger
	if log == nil {
		log = slog.New(discardHandler{})
	}
	size := opts.QueueSize
	if size <= 0 {
		size = DefaultQueueSize
	}
	e := &Engine{
		log:      log,
		audit:    opts.Audit,
		events:   make(chan Event, size),
		done:     make(chan struct{}),
		accounts: make(map[ClientID]*Account),
		seen:     make(map[TransactionID]struct{}),
	}
	go e.run()
	return e
}

// Submit enqueues one event, blocking when the queue is full. It returns
// ctx.Err() on cancellation, the fatal error after an internal halt, and
// ErrEngineClosed after shutdown. Soft rejections are not reported here;
// they are handled at the dispatch boundary.
func (e *Engine) Submit(ctx context.Context, ev Event) error {
	select {
	case <-e.done:
		return e.closedErr()
	default:
	}
	select {
	case e.events <- ev:
		return nil
	case <-e.done:
		return e.closedErr()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Balance reports one client's balances, serialized through the event
// queue so the read is ordered with all mutations. Fails with
// ClientNotFoundError for clients never seen.
func (e *Engine) Balance(ctx context.Context, client ClientID) (ClientBalance, error) {
	q := balanceQuery{client: client, reply: make(chan balanceReply, 1)}
	if err := e.Submit(ctx, q); err != nil {
		return ClientBalance{}, err
	}
	select {
	case r := <-q.reply:
		return r.balance, r.err
	case <-e.done:
		return ClientBalance{}, e.closedErr()
	case <-ctx.Done():
		return ClientBalance{}, ctx.Err()
	}
}

// Shutdown sends the terminal signal through the queue, waits for every
// previously submitted event to be applied, and yields the immutable final
// snapshot. The engine is unusable afterward. Returns the fatal error if
// the engine halted on an internal inconsistency.
func (e *Engine) Shutdown(ctx context.Context) (Snapshot, error) {
	select {
	case e.events <- shutdownSignal{}:
	case <-e.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case <-e.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if e.fatal != nil {
		return nil, e.fatal
	}
	return e.final, nil
}

func (e *Engine) closedErr() error {
	if e.fatal != nil {
		return e.fatal
	}
	return ErrEngineClosed
}

// =============================================================================
// EVENT LOOP - The single writer
// =============================================================================

func (e *Engine) run() {
	defer close(e.done)
	for ev := range e.events {
		switch ev := ev.(type) {
		case shutdownSignal:
			e.final = e.snapshot()
			return
		case balanceQuery:
			ev.reply <- e.queryBalance(ev.client)
		default:
			if err := e.apply(ev); err != nil {
				if IsInternal(err) {
					e.log.Error("ledger halted on internal inconsistency", "error", err)
					e.record(ev, OutcomeRejected, err)
					e.fatal = err
					return
				}
				e.log.Debug("event rejected", "error", err)
				e.record(ev, OutcomeRejected, err)
				continue
			}
			e.record(ev, OutcomeApplied, nil)
		}
	}
}

// apply is the single dispatch point: every mutation of account state
// starts here, on the engine goroutine.
func (e *Engine) apply(ev Event) error {
	switch ev := ev.(type) {
	case Deposit:
		entry, err := newEntry(e.seen, ev.Tx, KindDeposit, ev.Amount)
		if err != nil {
			return err
		}
		acct, err := e.unlockedOrCreate(ev.Client)
		if err != nil {
			return err
		}
		acct.Deposit(entry)
		return nil
	case Withdrawal:
		// The id is consumed even when the withdrawal is rejected below.
		entry, err := newEntry(e.seen, ev.Tx, KindWithdrawal, ev.Amount)
		if err != nil {
			return err
		}
		acct, err := e.unlockedOrCreate(ev.Client)
		if err != nil {
			return err
		}
		return acct.Withdraw(entry)
	case Dispute:
		acct, err := e.unlockedExisting(ev.Client)
		if err != nil {
			return err
		}
		return acct.Dispute(ev.Tx)
	case Resolve:
		acct, err := e.unlockedExisting(ev.Client)
		if err != nil {
			return err
		}
		return acct.Resolve(ev.Tx)
	case Chargeback:
		acct, err := e.unlockedExisting(ev.Client)
		if err != nil {
			return err
		}
		return acct.Chargeback(ev.Tx)
	default:
		return &InternalInconsistencyError{Detail: "unknown event type"}
	}
}

// unlockedOrCreate returns the client's account, creating it lazily on
// first use. Fails with AccountLockedError when the account exists and is
// locked.
func (e *Engine) unlockedOrCreate(client ClientID) (*Account, error) {
	if acct, ok := e.accounts[client]; ok {
		if acct.Locked() {
			return nil, &AccountLockedError{Client: client}
		}
		return acct, nil
	}
	acct := newAccount(client)
	e.accounts[client] = acct
	return acct, nil
}

// unlockedExisting returns the client's account only if it already exists.
// Dispute-lifecycle events never create accounts.
func (e *Engine) unlockedExisting(client ClientID) (*Account, error) {
	acct, ok := e.accounts[client]
	if !ok {
		return nil, &ClientNotFoundError{Client: client}
	}
	if acct.Locked() {
		return nil, &AccountLockedError{Client: client}
	}
	return acct, nil
}

func (e *Engine) queryBalance(client ClientID) balanceReply {
	acct, ok := e.accounts[client]
	if !ok {
		return balanceReply{err: &ClientNotFoundError{Client: client}}
	}
	return balanceReply{balance: ClientBalance{
		Client:    client,
		Available: acct.Available(),
		Held:      acct.Held(),
		Total:     acct.Total(),
		Locked:    acct.Locked(),
	}}
}

func (e *Engine) record(ev Event, outcome Outcome, cause error) {
	if e.audit == nil {
		return
	}
	rec := EventRecord{Outcome: outcome}
	if cause != nil {
		rec.Detail = cause.Error()
	}
	switch ev := ev.(type) {
	case Deposit:
		rec.Kind, rec.Client, rec.Tx = "deposit", ev.Client, ev.Tx
		amt := ev.Amount
		rec.Amount = &amt
	case Withdrawal:
		rec.Kind, rec.Client, rec.Tx = "withdrawal", ev.Client, ev.Tx
		amt := ev.Amount
		rec.Amount = &amt
	case Dispute:
		rec.Kind, rec.Client, rec.Tx = "dispute", ev.Client, ev.Tx
	case Resolve:
		rec.Kind, rec.Client, rec.Tx = "resolve", ev.Client, ev.Tx
	case Chargeback:
		rec.Kind, rec.Client, rec.Tx = "chargeback", ev.Client, ev.Tx
	default:
		return
	}
	e.audit.RecordEvent(rec)
}

// discardHandler drops all log records. Avoids nil checks on every log call.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }
