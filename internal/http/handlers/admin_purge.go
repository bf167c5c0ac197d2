package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/artchaos/booking-platform/internal/guestdata"
	"github.com/artchaos/booking-platform/pkg/logging"
)

// GuestPurger wipes a guest's rows across storage.
type GuestPurger interface {
	PurgeGuests(ctx context.Context, chatIDs []int64) (guestdata.PurgeResult, error)
}

var _ GuestPurger = (*guestdata.Purger)(nil)

// AdminPurgeHandler exposes guest erasure to the owner.
type AdminPurgeHandler struct {
	purger GuestPurger
	logger *logging.Logger
}

func NewAdminPurgeHandler(purger GuestPurger, logger *logging.Logger) *AdminPurgeHandler {
	if purger == nil {
		panic("handlers: purger required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminPurgeHandler{purger: purger, logger: logger}
}

// PurgeGuest handles DELETE /api/v1/admin/guests/{chatID}/data.
func (h *AdminPurgeHandler) PurgeGuest(w http.ResponseWriter, r *http.Request) {
	chatID, err := strconv.ParseInt(chi.URLParam(r, "chatID"), 10, 64)
	if err != nil {
		http.Error(w, "chatID must be an integer", http.StatusBadRequest)
		return
	}

	res, err := h.purger.PurgeGuests(r.Context(), []int64{chatID})
	if err != nil {
		h.logger.Error("guest purge failed", "error", err, "chat_id", chatID)
		http.Error(w, "failed to purge guest data", http.StatusInternalServerError)
		return
	}

	h.logger.Info("guest data purged", "chat_id", chatID,
		"bookings", res.Deleted.Bookings,
		"reminders", res.Deleted.Reminders,
		"sessions", res.SessionsCleared)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(res)
}
