package api

// =============================================================================
// REQUEST / RESPONSE DTOs
// =============================================================================

// TransactionRequest is the intake body for POST /api/transactions.
// Amount is a decimal string so clients never round through float64.
type TransactionRequest struct {
	Type   string `json:"type"`
	Client uint16 `json:"client"`
	Tx     uint32 `json:"tx"`
	Amount string `json:"amount,omitempty"`
}

// TransactionAccepted acknowledges an enqueued event. Acceptance means the
// event entered the ordered queue, not that it applied: business rejections
// happen asynchronously at the engine and land in the audit journal.
type TransactionAccepted struct {
	Type   string `json:"type"`
	Client uint16 `json:"client"`
	Tx     uint32 `json:"tx"`
	Status string `json:"status"`
}

// BalanceDTO is one client's balances at query time, rendered at the fixed
// output precision.
type BalanceDTO struct {
	Client    uint16 `json:"client"`
	Available string `json:"available"`
	Held      string `json:"held"`
	Total     string `json:"total"`
	Locked    bool   `json:"locked"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
