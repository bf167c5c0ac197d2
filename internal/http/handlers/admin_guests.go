package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/artchaos/booking-platform/internal/credits"
	"github.com/artchaos/booking-platform/internal/guests"
	observemetrics "github.com/artchaos/booking-platform/internal/observability/metrics"
	"github.com/artchaos/booking-platform/pkg/logging"
)

// GuestDirectory lists registered guests with their pass balances.
type GuestDirectory interface {
	ListWithBalances(ctx context.Context) ([]guests.GuestWithBalance, error)
}

var _ GuestDirectory = (*guests.Store)(nil)

// CreditGranter tops up a guest's pass.
type CreditGranter interface {
	Grant(ctx context.Context, chatID int64, visits int) (*credits.Balance, error)
}

var _ CreditGranter = (*credits.Store)(nil)

// GrantRecorder writes the audit row for an owner top-up.
type GrantRecorder interface {
	RecordCreditsGranted(ctx context.Context, chatID int64, visits int) error
}

// AdminGuestsHandler serves the guest directory and credit top-ups.
type AdminGuestsHandler struct {
	directory     GuestDirectory
	ledger        CreditGranter
	recorder      GrantRecorder
	metrics       *observemetrics.BookingMetrics
	defaultVisits int
	logger        *logging.Logger
}

// NewAdminGuestsHandler creates the guests admin handler. Recorder and
// metrics are attached with the With* builders.
func NewAdminGuestsHandler(directory GuestDirectory, ledger CreditGranter, logger *logging.Logger) *AdminGuestsHandler {
	if directory == nil {
		panic("handlers: guest directory required")
	}
	if ledger == nil {
		panic("handlers: credit ledger required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminGuestsHandler{directory: directory, ledger: ledger, defaultVisits: 8, logger: logger}
}

// WithRecorder attaches the audit recorder.
func (h *AdminGuestsHandler) WithRecorder(r GrantRecorder) *AdminGuestsHandler {
	h.recorder = r
	return h
}

// WithMetrics attaches booking metrics.
func (h *AdminGuestsHandler) WithMetrics(m *observemetrics.BookingMetrics) *AdminGuestsHandler {
	h.metrics = m
	return h
}

// WithDefaultVisits sets the pass size used when a top-up names no count.
func (h *AdminGuestsHandler) WithDefaultVisits(visits int) *AdminGuestsHandler {
	if visits > 0 {
		h.defaultVisits = visits
	}
	return h
}

// ListGuestsResponse is the directory payload.
type ListGuestsResponse struct {
	Guests []guests.GuestWithBalance `json:"guests"`
	Total  int                       `json:"total"`
}

// List returns every registered guest with their remaining visits.
// Route: GET /api/v1/admin/guests
func (h *AdminGuestsHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.directory.ListWithBalances(r.Context())
	if err != nil {
		h.logger.Error("admin guests list failed", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []guests.GuestWithBalance{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(ListGuestsResponse{Guests: list, Total: len(list)})
}

// GrantCreditsRequest is the top-up payload. A zero or omitted visits count
// grants one standard pass.
type GrantCreditsRequest struct {
	Visits int `json:"visits"`
}

// GrantCredits adds visits to a guest's pass.
// Route: POST /api/v1/admin/guests/{chatID}/credits
func (h *AdminGuestsHandler) GrantCredits(w http.ResponseWriter, r *http.Request) {
	chatID, err := strconv.ParseInt(chi.URLParam(r, "chatID"), 10, 64)
	if err != nil {
		http.Error(w, "chatID must be an integer", http.StatusBadRequest)
		return
	}

	var req GrantCreditsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}
	if req.Visits == 0 {
		req.Visits = h.defaultVisits
	}
	if req.Visits < 0 {
		http.Error(w, "visits must be positive", http.StatusBadRequest)
		return
	}

	balance, err := h.ledger.Grant(r.Context(), chatID, req.Visits)
	if err != nil {
		h.logger.Error("admin grant failed", "error", err, "chat_id", chatID, "visits", req.Visits)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if h.recorder != nil {
		if err := h.recorder.RecordCreditsGranted(r.Context(), chatID, req.Visits); err != nil {
			h.logger.Error("audit record failed", "error", err, "chat_id", chatID)
		}
	}
	h.metrics.ObserveCreditsGranted(req.Visits)
	h.logger.Info("credits granted", "chat_id", chatID, "visits", req.Visits, "visits_left", balance.VisitsLeft)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(balance)
}
