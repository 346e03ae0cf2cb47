package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/readquest/xp-api/internal/api/shared"
	"github.com/readquest/xp-api/internal/domain"
	"github.com/readquest/xp-api/internal/platform/logger"
	"github.com/readquest/xp-api/internal/service/ledger"
)

// BalanceResponse reports both XP balances for an account.
type BalanceResponse struct {
	AccountID     string `json:"account_id"`
	AccumulatedXP int64  `json:"accumulated_xp"`
	SpendableXP   int64  `json:"spendable_xp"`
}

// TransactionResponse represents one entry of the account's audit trail.
type TransactionResponse struct {
	ID           string    `json:"id"`
	AccountID    string    `json:"account_id"`
	Type         string    `json:"type"`
	Amount       int64     `json:"amount"`
	Source       string    `json:"source"`
	Description  string    `json:"description,omitempty"`
	BalanceAfter int64     `json:"balance_after"`
	AttemptID    *string   `json:"attempt_id,omitempty"`
	CommentID    *string   `json:"comment_id,omitempty"`
	FeatureID    *string   `json:"feature_id,omitempty"`
	RequestID    string    `json:"request_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// TransactionListResponse is a page of the account's audit trail.
type TransactionListResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	Limit        int                   `json:"limit"`
	Offset       int                   `json:"offset"`
}

// LedgerHandler handles balance and transaction history HTTP requests.
type LedgerHandler struct {
	ledgerService ledger.LedgerService
	logger        *slog.Logger
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledgerService ledger.LedgerService, logger *slog.Logger) *LedgerHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for LedgerHandler")
	}

	return &LedgerHandler{
		ledgerService: ledgerService,
		logger:        logger.With(slog.String("component", "ledger_handler")),
	}
}

// GetBalance handles GET /balance requests.
// It reports the authenticated account's accumulated and spendable XP.
func (h *LedgerHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	accountID, ok := requireAccountID(w, r)
	if !ok {
		return
	}

	balance, err := h.ledgerService.GetBalance(r.Context(), accountID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get balance")
		return
	}

	log.Debug("balance retrieved", slog.String("account_id", accountID.String()))
	shared.RespondWithJSON(w, r, http.StatusOK, BalanceResponse{
		AccountID:     accountID.String(),
		AccumulatedXP: balance.AccumulatedXP,
		SpendableXP:   balance.SpendableXP,
	})
}

// ListTransactions handles GET /transactions requests.
// It returns a page of the authenticated account's audit trail, newest
// first, controlled by the limit and offset query parameters.
func (h *LedgerHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	accountID, ok := requireAccountID(w, r)
	if !ok {
		return
	}

	limit, offset := getPagination(r)

	transactions, err := h.ledgerService.ListTransactions(r.Context(), accountID, limit, offset)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list transactions")
		return
	}

	responses := make([]TransactionResponse, 0, len(transactions))
	for _, tx := range transactions {
		responses = append(responses, transactionToResponse(tx))
	}

	log.Debug("transactions listed",
		slog.String("account_id", accountID.String()),
		slog.Int("count", len(responses)))
	shared.RespondWithJSON(w, r, http.StatusOK, TransactionListResponse{
		Transactions: responses,
		Limit:        limit,
		Offset:       offset,
	})
}

// transactionToResponse converts a domain.Transaction to a TransactionResponse.
func transactionToResponse(tx *domain.Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:           tx.ID.String(),
		AccountID:    tx.AccountID.String(),
		Type:         string(tx.Type),
		Amount:       tx.Amount,
		Source:       tx.Source,
		Description:  tx.Description,
		BalanceAfter: tx.BalanceAfter,
		FeatureID:    tx.FeatureID,
		RequestID:    tx.RequestID,
		CreatedAt:    tx.CreatedAt,
	}

	if tx.AttemptID != nil {
		id := tx.AttemptID.String()
		resp.AttemptID = &id
	}
	if tx.CommentID != nil {
		id := tx.CommentID.String()
		resp.CommentID = &id
	}

	return resp
}
