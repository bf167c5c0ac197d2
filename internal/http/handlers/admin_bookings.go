// Package handlers holds the owner-facing HTTP handlers behind the admin JWT.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/artchaos/booking-platform/internal/bookings"
	"github.com/artchaos/booking-platform/pkg/logging"
)

// BookingService is the slice of the orchestrator the admin surface needs.
type BookingService interface {
	Cancel(ctx context.Context, id uuid.UUID, requester *int64) (*bookings.Booking, error)
	ListForDay(ctx context.Context, day time.Time) ([]bookings.Booking, error)
}

var _ BookingService = (*bookings.Service)(nil)

// AdminBookingsHandler lets the owner inspect and cancel bookings.
type AdminBookingsHandler struct {
	svc    BookingService
	loc    *time.Location
	logger *logging.Logger
}

// NewAdminBookingsHandler creates the bookings admin handler. loc is the
// studio timezone used to interpret date query params.
func NewAdminBookingsHandler(svc BookingService, loc *time.Location, logger *logging.Logger) *AdminBookingsHandler {
	if svc == nil {
		panic("handlers: booking service required")
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminBookingsHandler{svc: svc, loc: loc, logger: logger}
}

// ListBookingsResponse is the list payload.
type ListBookingsResponse struct {
	Date     string             `json:"date"`
	Bookings []bookings.Booking `json:"bookings"`
	Total    int                `json:"total"`
}

// List returns the confirmed bookings for one studio-local date.
// Route: GET /api/v1/admin/bookings?date=2026-07-03
func (h *AdminBookingsHandler) List(w http.ResponseWriter, r *http.Request) {
	day := time.Now().In(h.loc)
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, h.loc)
		if err != nil {
			http.Error(w, "invalid date, use YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		day = parsed
	}

	list, err := h.svc.ListForDay(r.Context(), day)
	if err != nil {
		h.logger.Error("admin bookings list failed", "error", err, "date", day)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []bookings.Booking{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(ListBookingsResponse{
		Date:     day.Format("2006-01-02"),
		Bookings: list,
		Total:    len(list),
	})
}

// Cancel withdraws any guest's booking. The nil requester skips the
// ownership check.
// Route: DELETE /api/v1/admin/bookings/{id}
func (h *AdminBookingsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "id must be a UUID", http.StatusBadRequest)
		return
	}

	b, err := h.svc.Cancel(r.Context(), id, nil)
	switch {
	case errors.Is(err, bookings.ErrNotFound):
		http.Error(w, "booking not found", http.StatusNotFound)
		return
	case err != nil:
		h.logger.Error("admin cancel failed", "error", err, "booking_id", id)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(b)
}
