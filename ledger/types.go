/*
Package ledger implements the payments ledger: transaction entries, client
accounts, and the single-writer engine that applies events to them.

PURPOSE:
  This package is the core of the system. It owns the rules for how each
  event kind (deposit, withdrawal, dispute, resolve, chargeback) mutates
  transaction and client state, and the invariants that must hold across
  every mutation.

KEY CONCEPTS IN THIS FILE (types.go):
  - ClientID / TransactionID: type-safe identifiers
  - Kind: what a ledger entry is (deposit or withdrawal)
  - EntryState: where an entry is in its dispute lifecycle

DESIGN PRINCIPLES:
  1. Precision: uses decimal.Decimal to avoid floating-point errors
  2. Type safety: strong typing for IDs prevents mixing client/transaction IDs
  3. Single writer: all state is owned by one engine goroutine; no locks

SEE ALSO:
  - entry.go: Ledger entry lifecycle state machine
  - account.go: Per-client balances and dispute application
  - engine.go: Event serialization and dispatch
*/
package ledger

import "github.com/shopspring/decimal"

// =============================================================================
// IDENTIFIERS
// =============================================================================

// ClientID identifies one client account.
type ClientID uint16

// TransactionID identifies one deposit or withdrawal, unique process-wide.
type TransactionID uint32

// =============================================================================
// AMOUNTS
// =============================================================================

// DecimalPlaces is the fractional precision amounts are rendered at.
// Amounts accumulate at full precision; rounding happens only at the
// reporting boundary.
const DecimalPlaces = 4

// Round renders an amount at the fixed output precision. Banker's rounding,
// so exact halves round to the nearest even digit.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(DecimalPlaces)
}

// =============================================================================
// ENTRY KIND AND LIFECYCLE STATE
// =============================================================================

// Kind distinguishes the two fund-moving entry types.
type Kind int

const (
	KindDeposit Kind = iota
	KindWithdrawal
)

func (k Kind) String() string {
	switch k {
	case KindDeposit:
		return "deposit"
	case KindWithdrawal:
		return "withdrawal"
	default:
		return "unknown"
	}
}

// EntryState is the dispute lifecycle position of an entry.
//
// Transitions:
//
//	Normal → Disputed → Normal      (resolve)
//	                  → ChargedBack (terminal)
type EntryState int

const (
	StateNormal EntryState = iota
	StateDisputed
	StateChargedBack
)

func (s EntryState) String() string {
	switch s {
	case StateNormal:
		return "normal"
	case StateDisputed:
		return "disputed"
	case StateChargedBack:
		return "chargedback"
	default:
		return "unknown"
	}
}
