package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/readquest/xp-api/internal/api/shared"
	"github.com/readquest/xp-api/internal/domain"
	"github.com/readquest/xp-api/internal/platform/logger"
	"github.com/readquest/xp-api/internal/service/progression"
)

// SubmitAttemptRequest is the payload for recording a graded quiz attempt.
// Grading happens upstream; this endpoint consumes the result.
type SubmitAttemptRequest struct {
	ContentID string  `json:"content_id" validate:"required,uuid"`
	ScorePct  float64 `json:"score_pct"  validate:"min=0,max=100"`
	WPMUsed   int     `json:"wpm_used"   validate:"required,min=1"`
	RequestID string  `json:"request_id" validate:"required,max=64"`
}

// QuizAttemptResponse represents one recorded quiz attempt.
type QuizAttemptResponse struct {
	ID            string    `json:"id"`
	AccountID     string    `json:"account_id"`
	ContentID     string    `json:"content_id"`
	AttemptNumber int       `json:"attempt_number"`
	ScorePct      float64   `json:"score_pct"`
	WPMUsed       int       `json:"wpm_used"`
	XPAwarded     int64     `json:"xp_awarded"`
	IsPerfect     bool      `json:"is_perfect"`
	CreatedAt     time.Time `json:"created_at"`
}

// AttemptResultResponse is the full outcome of a recorded attempt: the
// attempt row plus the reward, credit, and speed progression effects.
type AttemptResultResponse struct {
	Attempt         QuizAttemptResponse `json:"attempt"`
	XPAwarded       int64               `json:"xp_awarded"`
	Passed          bool                `json:"passed"`
	Perfect         bool                `json:"perfect"`
	CreditGranted   bool                `json:"credit_granted"`
	SpeedProgressed bool                `json:"speed_progressed"`
	NewMaxWPM       int                 `json:"new_max_wpm"`
	BonusXP         int64               `json:"bonus_xp"`
}

// AttemptListResponse is the account's attempt history on one piece of
// content, ordered by attempt number.
type AttemptListResponse struct {
	Attempts []QuizAttemptResponse `json:"attempts"`
}

// SetReadingSpeedRequest is the payload for the reading speed adjustment
// endpoint.
type SetReadingSpeedRequest struct {
	WPM int `json:"wpm" validate:"required,min=1"`
}

// ReadingSpeedResponse reports the account's reading speeds after an
// adjustment.
type ReadingSpeedResponse struct {
	AccountID  string `json:"account_id"`
	CurrentWPM int    `json:"current_wpm"`
	MaxWPM     int    `json:"max_wpm"`
}

// ProgressionHandler handles quiz attempt and reading speed HTTP requests.
type ProgressionHandler struct {
	progressionService progression.ProgressionService
	logger             *slog.Logger
}

// NewProgressionHandler creates a new ProgressionHandler.
func NewProgressionHandler(
	progressionService progression.ProgressionService,
	logger *slog.Logger,
) *ProgressionHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for ProgressionHandler")
	}

	return &ProgressionHandler{
		progressionService: progressionService,
		logger:             logger.With(slog.String("component", "progression_handler")),
	}
}

// SubmitQuizAttempt handles POST /quiz/attempts requests.
// It records a graded quiz submission and credits the earned XP.
func (h *ProgressionHandler) SubmitQuizAttempt(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	accountID, ok := requireAccountID(w, r)
	if !ok {
		return
	}

	var req SubmitAttemptRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	contentID, err := uuid.Parse(req.ContentID)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid content ID format")
		return
	}

	result, err := h.progressionService.RecordQuizAttempt(r.Context(), progression.RecordAttemptRequest{
		AccountID: accountID,
		ContentID: contentID,
		ScorePct:  req.ScorePct,
		WPMUsed:   req.WPMUsed,
		RequestID: req.RequestID,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to record quiz attempt")
		return
	}

	log.Debug("quiz attempt recorded",
		slog.String("account_id", accountID.String()),
		slog.String("content_id", contentID.String()),
		slog.Int64("xp_awarded", result.XPAwarded))
	shared.RespondWithJSON(w, r, http.StatusCreated, attemptResultToResponse(result))
}

// ListAttempts handles GET /quiz/attempts requests.
// It returns the authenticated account's attempts on the content named by
// the content_id query parameter.
func (h *ProgressionHandler) ListAttempts(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccountID(w, r)
	if !ok {
		return
	}

	contentID, err := getQueryUUID(r, "content_id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	attempts, err := h.progressionService.ListAttempts(r.Context(), accountID, contentID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list quiz attempts")
		return
	}

	responses := make([]QuizAttemptResponse, 0, len(attempts))
	for _, attempt := range attempts {
		responses = append(responses, attemptToResponse(attempt))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, AttemptListResponse{Attempts: responses})
}

// SetReadingSpeed handles PUT /reading-speed requests.
// The adjustment is free and allowed any time up to the account's ceiling.
func (h *ProgressionHandler) SetReadingSpeed(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	accountID, ok := requireAccountID(w, r)
	if !ok {
		return
	}

	var req SetReadingSpeedRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	account, err := h.progressionService.SetReadingSpeed(r.Context(), accountID, req.WPM)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to set reading speed")
		return
	}

	log.Debug("reading speed updated",
		slog.String("account_id", accountID.String()),
		slog.Int("current_wpm", account.CurrentWPM))
	shared.RespondWithJSON(w, r, http.StatusOK, ReadingSpeedResponse{
		AccountID:  account.ID.String(),
		CurrentWPM: account.CurrentWPM,
		MaxWPM:     account.MaxWPM,
	})
}

// attemptToResponse converts a domain.QuizAttempt to a QuizAttemptResponse.
func attemptToResponse(attempt *domain.QuizAttempt) QuizAttemptResponse {
	return QuizAttemptResponse{
		ID:            attempt.ID.String(),
		AccountID:     attempt.AccountID.String(),
		ContentID:     attempt.ContentID.String(),
		AttemptNumber: attempt.AttemptNumber,
		ScorePct:      attempt.ScorePct,
		WPMUsed:       attempt.WPMUsed,
		XPAwarded:     attempt.XPAwarded,
		IsPerfect:     attempt.IsPerfect,
		CreatedAt:     attempt.CreatedAt,
	}
}

// attemptResultToResponse converts a progression.AttemptResult to an
// AttemptResultResponse.
func attemptResultToResponse(result *progression.AttemptResult) AttemptResultResponse {
	return AttemptResultResponse{
		Attempt:         attemptToResponse(result.Attempt),
		XPAwarded:       result.XPAwarded,
		Passed:          result.Passed,
		Perfect:         result.Perfect,
		CreditGranted:   result.CreditGranted,
		SpeedProgressed: result.SpeedProgressed,
		NewMaxWPM:       result.NewMaxWPM,
		BonusXP:         result.BonusXP,
	}
}
