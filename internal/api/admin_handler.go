package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/readquest/xp-api/internal/api/shared"
	"github.com/readquest/xp-api/internal/domain"
	"github.com/readquest/xp-api/internal/store"
)

// FlagResponse represents one integrity flag raised against an account.
type FlagResponse struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	Kind      string    `json:"kind"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}

// FlagListResponse is a page of integrity flags, newest first.
type FlagListResponse struct {
	Flags  []FlagResponse `json:"flags"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// AdminHandler serves the operator-facing read surface: the integrity
// flags raised by the background monitor. Flags are resolved by operators
// out of band; this handler never mutates them.
type AdminHandler struct {
	flagStore store.AccountFlagStore
	logger    *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(flagStore store.AccountFlagStore, logger *slog.Logger) *AdminHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for AdminHandler")
	}

	return &AdminHandler{
		flagStore: flagStore,
		logger:    logger.With(slog.String("component", "admin_handler")),
	}
}

// ListFlags handles GET /admin/flags requests. With an account_id query
// parameter it returns that account's flags; otherwise it returns a page
// across all accounts.
func (h *AdminHandler) ListFlags(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAccountID(w, r); !ok {
		return
	}

	limit, offset := getPagination(r)

	var (
		flags []*domain.AccountFlag
		err   error
	)
	if r.URL.Query().Get("account_id") != "" {
		accountID, parseErr := getQueryUUID(r, "account_id")
		if parseErr != nil {
			HandleAPIError(w, r, parseErr, "")
			return
		}
		flags, err = h.flagStore.ListByAccount(r.Context(), accountID)
	} else {
		flags, err = h.flagStore.List(r.Context(), limit, offset)
	}
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list account flags")
		return
	}

	responses := make([]FlagResponse, 0, len(flags))
	for _, flag := range flags {
		responses = append(responses, flagToResponse(flag))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, FlagListResponse{
		Flags:  responses,
		Limit:  limit,
		Offset: offset,
	})
}

// flagToResponse converts a domain.AccountFlag to a FlagResponse.
func flagToResponse(flag *domain.AccountFlag) FlagResponse {
	return FlagResponse{
		ID:        flag.ID.String(),
		AccountID: flag.AccountID.String(),
		Kind:      string(flag.Kind),
		Detail:    flag.Detail,
		CreatedAt: flag.CreatedAt,
	}
}
