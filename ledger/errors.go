/*
errors.go - Centralized error types for the ledger

PURPOSE:
  All error types in one place for consistency and discoverability.
  The engine classifies errors at exactly one boundary (the dispatch
  loop), so every error here is either soft or internal, never both.

ERROR CATEGORIES:
  1. Soft/business errors - expected, data-dependent rejections. The
     offending event is discarded and processing continues.
  2. Internal errors - the ledger's own bookkeeping is broken. Processing
     cannot be trusted to continue and the engine halts.

USAGE:
  Callers match with errors.Is / errors.As:

    if errors.Is(err, ledger.ErrInsufficientFunds) { ... }

    var inv *ledger.InvalidStateTransitionError
    if errors.As(err, &inv) { ... inv.Expected, inv.Actual ... }

SEE ALSO:
  - engine.go: The single place soft vs internal is decided
*/
package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrDuplicateTransaction is returned when a deposit or withdrawal reuses
	// a transaction id already seen anywhere in the run, for any client.
	ErrDuplicateTransaction = errors.New("duplicate transaction id")

	// ErrAccountLocked is returned for any event targeting a client whose
	// account was locked by a chargeback.
	ErrAccountLocked = errors.New("account locked")

	// ErrClientNotFound is returned when a dispute, resolve, or chargeback
	// references a client that has never deposited or withdrawn. These
	// events never create accounts implicitly.
	ErrClientNotFound = errors.New("client not found")

	// ErrTransactionNotFound is returned when a dispute, resolve, or
	// chargeback references a transaction id the client's account does
	// not own.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrInsufficientFunds is returned when a withdrawal exceeds the
	// available balance. The transaction id is still consumed.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidStateTransition is returned when an entry is not in the
	// state the requested lifecycle transition requires.
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrDisputeNotSupported is returned when the dispute lifecycle is
	// applied to a withdrawal entry. Only deposits are disputable.
	ErrDisputeNotSupported = errors.New("dispute not supported for withdrawals")

	// ErrInternalInconsistency indicates the ledger's own invariants were
	// violated. This is the only hard error: it halts the engine.
	ErrInternalInconsistency = errors.New("internal ledger inconsistency")

	// ErrEngineClosed is returned by Submit and Balance after the engine
	// has shut down or halted on an internal error.
	ErrEngineClosed = errors.New("engine closed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// DuplicateTransactionError reports a reused transaction id.
type DuplicateTransactionError struct {
	Tx TransactionID
}

func (e *DuplicateTransactionError) Error() string {
	return fmt.Sprintf("transaction %d has already been seen", e.Tx)
}

func (e *DuplicateTransactionError) Unwrap() error { return ErrDuplicateTransaction }

// AccountLockedError reports an event against a locked account.
type AccountLockedError struct {
	Client ClientID
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("client %d is locked and accepts no further events", e.Client)
}

func (e *AccountLockedError) Unwrap() error { return ErrAccountLocked }

// ClientNotFoundError reports a dispute-lifecycle event for an unknown client.
type ClientNotFoundError struct {
	Client ClientID
}

func (e *ClientNotFoundError) Error() string {
	return fmt.Sprintf("client %d not found", e.Client)
}

func (e *ClientNotFoundError) Unwrap() error { return ErrClientNotFound }

// TransactionNotFoundError reports a reference to a transaction the account
// does not own.
type TransactionNotFoundError struct {
	Tx TransactionID
}

func (e *TransactionNotFoundError) Error() string {
	return fmt.Sprintf("transaction %d not found", e.Tx)
}

func (e *TransactionNotFoundError) Unwrap() error { return ErrTransactionNotFound }

// InsufficientFundsError provides details about a withdrawal shortage.
type InsufficientFundsError struct {
	Client    ClientID
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("client %d has %s available, withdrawal of %s rejected",
		e.Client, e.Available, e.Requested)
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

// InvalidStateTransitionError reports an entry in the wrong lifecycle state.
type InvalidStateTransitionError struct {
	Tx       TransactionID
	Expected EntryState
	Actual   EntryState
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("transaction %d not in expected state: expected %s, actual %s",
		e.Tx, e.Expected, e.Actual)
}

func (e *InvalidStateTransitionError) Unwrap() error { return ErrInvalidStateTransition }

// DisputeNotSupportedError reports a dispute lifecycle applied to a withdrawal.
type DisputeNotSupportedError struct {
	Tx TransactionID
}

func (e *DisputeNotSupportedError) Error() string {
	return fmt.Sprintf("transaction %d cannot be disputed, only deposits are disputable", e.Tx)
}

func (e *DisputeNotSupportedError) Unwrap() error { return ErrDisputeNotSupported }

// InternalInconsistencyError reports a violated ledger invariant. It signals
// a bug in the ledger itself, never bad input.
type InternalInconsistencyError struct {
	Tx     TransactionID
	Detail string
}

func (e *InternalInconsistencyError) Error() string {
	return fmt.Sprintf("internal inconsistency on transaction %d: %s", e.Tx, e.Detail)
}

func (e *InternalInconsistencyError) Unwrap() error { return ErrInternalInconsistency }

// =============================================================================
// CLASSIFICATION
// =============================================================================

// IsInternal reports whether err is a hard error that must halt the engine.
func IsInternal(err error) bool {
	return errors.Is(err, ErrInternalInconsistency)
}

// IsSoft reports whether err is an expected business rejection: the event
// is discarded and processing continues.
func IsSoft(err error) bool {
	return errors.Is(err, ErrDuplicateTransaction) ||
		errors.Is(err, ErrAccountLocked) ||
		errors.Is(err, ErrClientNotFound) ||
		errors.Is(err, ErrTransactionNotFound) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrInvalidStateTransition) ||
		errors.Is(err, ErrDisputeNotSupported)
}
