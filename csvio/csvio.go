/*
Package csvio adapts the tabular wire format to the ledger engine.

PURPOSE:
  This is the external collaborator the core treats as peripheral: it
  decodes transaction records into typed events and renders the final
  snapshot back to CSV. No ledger semantics live here; the one business
  rule at this boundary is the intake contract that negative amounts must
  never reach the core.

INPUT FORMAT:
  type, client, tx, amount
  - headers and the type column are case-insensitive
  - every field is whitespace-trimmed
  - amount is required for deposit/withdrawal, ignored otherwise
  - unknown record types are skipped with a warning
  - negative amounts are skipped with a warning (intake contract)
  - malformed rows (bad numbers, missing amount) abort processing

OUTPUT FORMAT:
  client, available, held, total, locked
  - amounts rendered at the fixed 4-place precision, banker's rounding
  - one row per client ever seen

SEE ALSO:
  - ledger/engine.go: Where the decoded events go
*/
package csvio

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/atzewgene/toy-payments-engine/ledger"
)

const (
	recordTypeDeposit    = "deposit"
	recordTypeWithdrawal = "withdrawal"
	recordTypeDispute    = "dispute"
	recordTypeResolve    = "resolve"
	recordTypeChargeback = "chargeback"
)

// ProcessInput streams CSV records from r into the engine, one event per
// row, in row order. Submission blocks when the engine queue is full,
// backpressuring the read. Returns an error only for malformed input or a
// halted engine; business rejections are the engine's concern.
func ProcessInput(ctx context.Context, r io.Reader, eng *ledger.Engine, log *slog.Logger) error {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading header: %w", err)
	}
	cols, err := columnIndex(header)
	if err != nil {
		return err
	}

	for row := 0; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading row %d: %w", row, err)
		}
		if err := processRecord(ctx, record, cols, eng, log); err != nil {
			return fmt.Errorf("processing row %d: %w", row, err)
		}
	}
}

// columns maps the lowercased header names to their positions, so column
// order in the file does not matter.
type columns struct {
	typ, client, tx, amount int
}

func columnIndex(header []string) (columns, error) {
	cols := columns{typ: -1, client: -1, tx: -1, amount: -1}
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "type":
			cols.typ = i
		case "client":
			cols.client = i
		case "tx":
			cols.tx = i
		case "amount":
			cols.amount = i
		}
	}
	if cols.typ < 0 || cols.client < 0 || cols.tx < 0 {
		return cols, errors.New("header must contain type, client and tx columns")
	}
	return cols, nil
}

func processRecord(ctx context.Context, record []string, cols columns, eng *ledger.Engine, log *slog.Logger) error {
	field := func(i int) string {
		if i < 0 || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	recordType := strings.ToLower(field(cols.typ))

	client64, err := strconv.ParseUint(field(cols.client), 10, 16)
	if err != nil {
		return fmt.Errorf("invalid client id %q: %w", field(cols.client), err)
	}
	tx64, err := strconv.ParseUint(field(cols.tx), 10, 32)
	if err != nil {
		return fmt.Errorf("invalid transaction id %q: %w", field(cols.tx), err)
	}
	client := ledger.ClientID(client64)
	tx := ledger.TransactionID(tx64)

	switch recordType {
	case recordTypeDeposit, recordTypeWithdrawal:
		raw := field(cols.amount)
		if raw == "" {
			return fmt.Errorf("missing amount for %s record, tx %d", recordType, tx)
		}
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return fmt.Errorf("invalid amount %q: %w", raw, err)
		}
		// Intake contract: negative amounts never reach the core.
		if amount.IsNegative() {
			log.Warn("skipping record with negative amount",
				"type", recordType, "client", client, "tx", tx, "amount", raw)
			return nil
		}
		if recordType == recordTypeDeposit {
			return eng.Submit(ctx, ledger.Deposit{Tx: tx, Client: client, Amount: amount})
		}
		return eng.Submit(ctx, ledger.Withdrawal{Tx: tx, Client: client, Amount: amount})
	case recordTypeDispute:
		return eng.Submit(ctx, ledger.Dispute{Tx: tx, Client: client})
	case recordTypeResolve:
		return eng.Submit(ctx, ledger.Resolve{Tx: tx, Client: client})
	case recordTypeChargeback:
		return eng.Submit(ctx, ledger.Chargeback{Tx: tx, Client: client})
	default:
		log.Warn("skipping unknown record type", "type", recordType)
		return nil
	}
}

// WriteSnapshot renders the final snapshot as CSV, amounts at the fixed
// output precision.
func WriteSnapshot(w io.Writer, snap ledger.Snapshot) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"client", "available", "held", "total", "locked"}); err != nil {
		return err
	}
	for _, cb := range snap {
		row := []string{
			strconv.FormatUint(uint64(cb.Client), 10),
			ledger.Round(cb.Available).String(),
			ledger.Round(cb.Held).String(),
			ledger.Round(cb.Total).String(),
			strconv.FormatBool(cb.Locked),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
