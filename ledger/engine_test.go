package ledger_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atzewgene/toy-payments-engine/ledger"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func deposit(tx uint32, client uint16, amount string) ledger.Event {
	return ledger.Deposit{Tx: ledger.TransactionID(tx), Client: ledger.ClientID(client), Amount: dec(amount)}
}

func withdrawal(tx uint32, client uint16, amount string) ledger.Event {
	return ledger.Withdrawal{Tx: ledger.TransactionID(tx), Client: ledger.ClientID(client), Amount: dec(amount)}
}

func dispute(tx uint32, client uint16) ledger.Event {
	return ledger.Dispute{Tx: ledger.TransactionID(tx), Client: ledger.ClientID(client)}
}

func resolve(tx uint32, client uint16) ledger.Event {
	return ledger.Resolve{Tx: ledger.TransactionID(tx), Client: ledger.ClientID(client)}
}

func chargeback(tx uint32, client uint16) ledger.Event {
	return ledger.Chargeback{Tx: ledger.TransactionID(tx), Client: ledger.ClientID(client)}
}

// runEvents pushes the events through a fresh engine and returns the final
// snapshot.
func runEvents(t *testing.T, events ...ledger.Event) ledger.Snapshot {
	t.Helper()
	ctx := context.Background()
	eng := ledger.NewEngine(ledger.Options{})
	for _, ev := range events {
		require.NoError(t, eng.Submit(ctx, ev))
	}
	snap, err := eng.Shutdown(ctx)
	require.NoError(t, err)
	return snap
}

func client(t *testing.T, snap ledger.Snapshot, id uint16) ledger.ClientBalance {
	t.Helper()
	for _, cb := range snap {
		if cb.Client == ledger.ClientID(id) {
			return cb
		}
	}
	t.Fatalf("client %d not in snapshot", id)
	return ledger.ClientBalance{}
}

func assertClient(t *testing.T, snap ledger.Snapshot, id uint16, available, held string, locked bool) {
	t.Helper()
	cb := client(t, snap, id)
	assert.True(t, cb.Available.Equal(dec(available)), "client %d available: want %s, got %s", id, available, cb.Available)
	assert.True(t, cb.Held.Equal(dec(held)), "client %d held: want %s, got %s", id, held, cb.Held)
	assert.True(t, cb.Total.Equal(cb.Available.Add(cb.Held)), "client %d total must equal available + held", id)
	assert.Equal(t, locked, cb.Locked, "client %d locked", id)
}

// =============================================================================
// SCENARIO TESTS
// =============================================================================

func TestEngine_SingleDeposit(t *testing.T) {
	snap := runEvents(t, deposit(1, 1, "10"))

	require.Len(t, snap, 1)
	assertClient(t, snap, 1, "10", "0", false)
}

func TestEngine_DepositThenWithdrawal(t *testing.T) {
	snap := runEvents(t,
		deposit(1, 1, "10"),
		withdrawal(2, 1, "5"),
	)

	assertClient(t, snap, 1, "5", "0", false)
}

func TestEngine_DisputeHoldsFunds(t *testing.T) {
	snap := runEvents(t,
		deposit(1, 1, "10"),
		dispute(1, 1),
	)

	assertClient(t, snap, 1, "0", "10", false)
}

func TestEngine_DisputeThenResolve(t *testing.T) {
	snap := runEvents(t,
		deposit(1, 1, "10"),
		dispute(1, 1),
		resolve(1, 1),
	)

	assertClient(t, snap, 1, "10", "0", false)
}

func TestEngine_DisputeThenChargeback(t *testing.T) {
	snap := runEvents(t,
		deposit(1, 1, "10"),
		dispute(1, 1),
		chargeback(1, 1),
	)

	assertClient(t, snap, 1, "0", "0", true)
}

func TestEngine_WithdrawalWithoutDeposit_CreatesEmptyAccount(t *testing.T) {
	// The rejected withdrawal still creates the account, at zero balance.
	snap := runEvents(t, withdrawal(1, 1, "5"))

	require.Len(t, snap, 1)
	assertClient(t, snap, 1, "0", "0", false)
}

// =============================================================================
// TRANSACTION ID UNIQUENESS
// =============================================================================

func TestEngine_DuplicateID_SameClient_Ignored(t *testing.T) {
	snap := runEvents(t,
		deposit(1, 1, "10"),
		deposit(1, 1, "99"),
	)

	assertClient(t, snap, 1, "10", "0", false)
}

func TestEngine_DuplicateID_DifferentClient_Ignored(t *testing.T) {
	// ids are unique process-wide: client 2 cannot reuse client 1's id.
	snap := runEvents(t,
		deposit(1, 1, "10"),
		deposit(1, 2, "99"),
	)

	assertClient(t, snap, 1, "10", "0", false)
	assertClient(t, snap, 2, "0", "0", false)
}

func TestEngine_FailedWithdrawalConsumesID(t *testing.T) {
	// GIVEN: a withdrawal rejected for insufficient funds
	// WHEN: the same id is retried as a deposit
	// THEN: the retry is rejected; the attempt already used the id

	snap := runEvents(t,
		withdrawal(1, 1, "5"),
		deposit(1, 1, "100"),
	)

	assertClient(t, snap, 1, "0", "0", false)
}

func TestEngine_ZeroAmountEventsConsumeIDs(t *testing.T) {
	snap := runEvents(t,
		deposit(1, 1, "0"),
		withdrawal(2, 1, "0"),
		deposit(1, 1, "50"), // rejected, id 1 consumed
	)

	assertClient(t, snap, 1, "0", "0", false)
}

// =============================================================================
// LOCKED ACCOUNT BEHAVIOR
// =============================================================================

func TestEngine_LockedAccountRejectsEverything(t *testing.T) {
	snap := runEvents(t,
		deposit(1, 1, "10"),
		deposit(2, 1, "20"),
		dispute(1, 1),
		chargeback(1, 1),
		// all of these must bounce off the lock
		deposit(3, 1, "5"),
		withdrawal(4, 1, "5"),
		dispute(2, 1),
		resolve(2, 1),
		chargeback(2, 1),
	)

	assertClient(t, snap, 1, "20", "0", true)
}

func TestEngine_DepositToLockedAccountStillConsumesID(t *testing.T) {
	// The entry is registered before the lock check, so the id is burned
	// even though the deposit is rejected.
	snap := runEvents(t,
		deposit(1, 1, "10"),
		dispute(1, 1),
		chargeback(1, 1),
		deposit(2, 1, "5"), // rejected: locked; id 2 still consumed
		deposit(2, 2, "7"), // rejected: id 2 was burned by the locked attempt
	)

	// The duplicate check fires before account creation, so client 2 never
	// comes into existence.
	require.Len(t, snap, 1)
	assertClient(t, snap, 1, "0", "0", true)
}

// =============================================================================
// DISPUTE-LIFECYCLE ROUTING
// =============================================================================

func TestEngine_DisputeDoesNotCreateClient(t *testing.T) {
	snap := runEvents(t, dispute(1, 9))

	assert.Empty(t, snap)
}

func TestEngine_DisputeWrongClient_Ignored(t *testing.T) {
	// Client 2 exists but does not own tx 1; nothing moves.
	snap := runEvents(t,
		deposit(1, 1, "10"),
		deposit(2, 2, "20"),
		dispute(1, 2),
	)

	assertClient(t, snap, 1, "10", "0", false)
	assertClient(t, snap, 2, "20", "0", false)
}

func TestEngine_CannotDisputeWithdrawal(t *testing.T) {
	snap := runEvents(t,
		deposit(1, 1, "10"),
		withdrawal(2, 1, "5"),
		dispute(2, 1),
		resolve(2, 1), // the failed dispute must not have marked the entry
	)

	assertClient(t, snap, 1, "5", "0", false)
}

func TestEngine_InterleavedClients(t *testing.T) {
	snap := runEvents(t,
		deposit(1, 1, "10"),
		deposit(2, 2, "20"),
		withdrawal(3, 1, "4"),
		dispute(2, 2),
		deposit(4, 1, "1"),
		chargeback(2, 2),
	)

	assertClient(t, snap, 1, "7", "0", false)
	assertClient(t, snap, 2, "0", "0", true)
}

// =============================================================================
// ENGINE LIFECYCLE
// =============================================================================

func TestEngine_SubmitAfterShutdownFails(t *testing.T) {
	ctx := context.Background()
	eng := ledger.NewEngine(ledger.Options{})

	_, err := eng.Shutdown(ctx)
	require.NoError(t, err)

	assert.ErrorIs(t, eng.Submit(ctx, deposit(1, 1, "10")), ledger.ErrEngineClosed)
}

func TestEngine_SnapshotSortedByClient(t *testing.T) {
	snap := runEvents(t,
		deposit(1, 30, "1"),
		deposit(2, 10, "1"),
		deposit(3, 20, "1"),
	)

	require.Len(t, snap, 3)
	assert.Equal(t, ledger.ClientID(10), snap[0].Client)
	assert.Equal(t, ledger.ClientID(20), snap[1].Client)
	assert.Equal(t, ledger.ClientID(30), snap[2].Client)
}

func TestEngine_BalanceQuery_SerializedWithMutations(t *testing.T) {
	ctx := context.Background()
	eng := ledger.NewEngine(ledger.Options{})

	require.NoError(t, eng.Submit(ctx, deposit(1, 1, "10")))
	require.NoError(t, eng.Submit(ctx, withdrawal(2, 1, "4")))

	// The query is enqueued after both mutations, so it must observe both.
	balance, err := eng.Balance(ctx, 1)
	require.NoError(t, err)
	assert.True(t, balance.Available.Equal(dec("6")))
	assert.True(t, balance.Total.Equal(dec("6")))

	_, err = eng.Balance(ctx, 42)
	assert.ErrorIs(t, err, ledger.ErrClientNotFound)

	_, err = eng.Shutdown(ctx)
	require.NoError(t, err)
}

// =============================================================================
// AUDIT HOOK
// =============================================================================

type captureAuditor struct {
	records []ledger.EventRecord
}

func (c *captureAuditor) RecordEvent(rec ledger.EventRecord) {
	c.records = append(c.records, rec)
}

func TestEngine_AuditReceivesEveryDisposition(t *testing.T) {
	ctx := context.Background()
	audit := &captureAuditor{}
	eng := ledger.NewEngine(ledger.Options{Audit: audit})

	require.NoError(t, eng.Submit(ctx, deposit(1, 1, "10")))
	require.NoError(t, eng.Submit(ctx, withdrawal(2, 1, "99"))) // rejected
	require.NoError(t, eng.Submit(ctx, dispute(5, 7)))          // rejected, no such client

	_, err := eng.Shutdown(ctx)
	require.NoError(t, err)

	require.Len(t, audit.records, 3)
	assert.Equal(t, ledger.OutcomeApplied, audit.records[0].Outcome)
	assert.Equal(t, "deposit", audit.records[0].Kind)
	require.NotNil(t, audit.records[0].Amount)
	assert.True(t, audit.records[0].Amount.Equal(dec("10")))

	assert.Equal(t, ledger.OutcomeRejected, audit.records[1].Outcome)
	assert.NotEmpty(t, audit.records[1].Detail)

	assert.Equal(t, ledger.OutcomeRejected, audit.records[2].Outcome)
	assert.Nil(t, audit.records[2].Amount)
}

// =============================================================================
// PRECISION
// =============================================================================

func TestEngine_AmountsAccumulateAtFullPrecision(t *testing.T) {
	snap := runEvents(t,
		deposit(1, 1, "0.00001"),
		deposit(2, 1, "0.00001"),
		deposit(3, 1, "0.00001"),
	)

	// Full precision internally; rounding is the reporting boundary's job.
	cb := client(t, snap, 1)
	assert.True(t, cb.Available.Equal(dec("0.00003")))
	assert.True(t, ledger.Round(cb.Available).Equal(dec("0")))
}

func TestRound_BankersRounding(t *testing.T) {
	assert.Equal(t, "1.2346", ledger.Round(dec("1.23456")).String())
	assert.Equal(t, "1.2344", ledger.Round(dec("1.23445")).String())
	assert.Equal(t, "1.5", ledger.Round(dec("1.5")).String())
}
