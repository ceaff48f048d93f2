/*
handlers.go - HTTP handlers for the payments engine

PURPOSE:
  Exposes the ledger engine over REST. Handles HTTP request/response and
  JSON serialization, delegates all semantics to the engine. Like the CSV
  intake, this layer enforces the boundary contract that negative amounts
  never reach the core.

ENDPOINTS:
  POST /api/transactions          Submit one event (202 on enqueue)
  GET  /api/clients/{id}/balance  Serialized balance read
  GET  /api/health                Liveness

ERROR HANDLING:
  - 400: malformed body, unknown type, negative amount, bad ids
  - 404: balance query for a never-seen client
  - 503: engine shut down or halted

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/atzewgene/toy-payments-engine/ledger"
)

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine *ledger.Engine
	Log    *slog.Logger
}

// NewHandler creates a new handler around a running engine.
func NewHandler(eng *ledger.Engine, log *slog.Logger) *Handler {
	return &Handler{Engine: eng, Log: log}
}

// SubmitTransaction enqueues one event.
// POST /api/transactions
func (h *Handler) SubmitTransaction(w http.ResponseWriter, r *http.Request) {
	var req TransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ev, err := toEvent(req)
	if err != nil {
		h.Log.Debug("transaction rejected at intake", "type", req.Type, "tx", req.Tx, "error", err)
		writeError(w, http.StatusBadRequest, "Invalid transaction", err)
		return
	}

	if err := h.Engine.Submit(r.Context(), ev); err != nil {
		writeError(w, http.StatusServiceUnavailable, "Engine unavailable", err)
		return
	}

	writeJSON(w, http.StatusAccepted, TransactionAccepted{
		Type:   req.Type,
		Client: req.Client,
		Tx:     req.Tx,
		Status: "accepted",
	})
}

// GetBalance reports one client's balances. The read flows through the
// engine's event queue, so it is ordered with every mutation.
// GET /api/clients/{id}/balance
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 16)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid client id", err)
		return
	}

	balance, err := h.Engine.Balance(r.Context(), ledger.ClientID(id))
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrClientNotFound):
			writeError(w, http.StatusNotFound, "Client not found", nil)
		default:
			writeError(w, http.StatusServiceUnavailable, "Engine unavailable", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, BalanceDTO{
		Client:    uint16(balance.Client),
		Available: ledger.Round(balance.Available).String(),
		Held:      ledger.Round(balance.Held).String(),
		Total:     ledger.Round(balance.Total).String(),
		Locked:    balance.Locked,
	})
}

// Health is a liveness probe.
// GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// toEvent validates a request and builds the typed event. Negative amounts
// are rejected here so they never reach the core.
func toEvent(req TransactionRequest) (ledger.Event, error) {
	client := ledger.ClientID(req.Client)
	tx := ledger.TransactionID(req.Tx)

	switch req.Type {
	case "deposit", "withdrawal":
		if req.Amount == "" {
			return nil, errors.New("amount is required for deposit and withdrawal")
		}
		amount, err := decimal.NewFromString(req.Amount)
		if err != nil {
			return nil, errors.New("amount is not a valid decimal")
		}
		if amount.IsNegative() {
			return nil, errors.New("amount must not be negative")
		}
		if req.Type == "deposit" {
			return ledger.Deposit{Tx: tx, Client: client, Amount: amount}, nil
		}
		return ledger.Withdrawal{Tx: tx, Client: client, Amount: amount}, nil
	case "dispute":
		return ledger.Dispute{Tx: tx, Client: client}, nil
	case "resolve":
		return ledger.Resolve{Tx: tx, Client: client}, nil
	case "chargeback":
		return ledger.Chargeback{Tx: tx, Client: client}, nil
	default:
		return nil, errors.New("unknown transaction type " + strconv.Quote(req.Type))
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
