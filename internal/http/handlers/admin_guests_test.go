package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artchaos/booking-platform/internal/credits"
	"github.com/artchaos/booking-platform/internal/guests"
)

type fakeDirectory struct {
	list []guests.GuestWithBalance
	err  error
}

func (f *fakeDirectory) ListWithBalances(context.Context) ([]guests.GuestWithBalance, error) {
	return f.list, f.err
}

type fakeGranter struct {
	chatID  int64
	visits  int
	balance *credits.Balance
	err     error
}

func (f *fakeGranter) Grant(_ context.Context, chatID int64, visits int) (*credits.Balance, error) {
	f.chatID, f.visits = chatID, visits
	if f.err != nil {
		return nil, f.err
	}
	if f.balance != nil {
		return f.balance, nil
	}
	return &credits.Balance{ChatID: chatID, VisitsLeft: visits}, nil
}

type fakeGrantRecorder struct {
	chatID int64
	visits int
	err    error
}

func (f *fakeGrantRecorder) RecordCreditsGranted(_ context.Context, chatID int64, visits int) error {
	f.chatID, f.visits = chatID, visits
	return f.err
}

func TestListGuests(t *testing.T) {
	dir := &fakeDirectory{list: []guests.GuestWithBalance{
		{Guest: guests.Guest{ChatID: 42, FirstName: "Аня", Username: "anya", CreatedAt: time.Now()}, VisitsLeft: 4},
		{Guest: guests.Guest{ChatID: 77, FirstName: "Борис"}, VisitsLeft: 0},
	}}
	h := NewAdminGuestsHandler(dir, &fakeGranter{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/guests", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp ListGuestsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
	require.Len(t, resp.Guests, 2)
	assert.Equal(t, "Аня", resp.Guests[0].FirstName)
	assert.Equal(t, 4, resp.Guests[0].VisitsLeft)
}

func TestListGuestsStoreError(t *testing.T) {
	h := NewAdminGuestsHandler(&fakeDirectory{err: assert.AnError}, &fakeGranter{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/guests", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGrantCredits(t *testing.T) {
	granter := &fakeGranter{balance: &credits.Balance{ChatID: 42, VisitsLeft: 9}}
	recorder := &fakeGrantRecorder{}
	h := NewAdminGuestsHandler(&fakeDirectory{}, granter, nil).WithRecorder(recorder)

	req := withRouteParam(
		httptest.NewRequest(http.MethodPost, "/api/v1/admin/guests/42/credits", strings.NewReader(`{"visits":5}`)),
		"chatID", "42")
	rec := httptest.NewRecorder()
	h.GrantCredits(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(42), granter.chatID)
	assert.Equal(t, 5, granter.visits)
	assert.Equal(t, int64(42), recorder.chatID)
	assert.Equal(t, 5, recorder.visits)

	var balance credits.Balance
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &balance))
	assert.Equal(t, 9, balance.VisitsLeft)
}

func TestGrantCreditsBadChatID(t *testing.T) {
	h := NewAdminGuestsHandler(&fakeDirectory{}, &fakeGranter{}, nil)

	req := withRouteParam(
		httptest.NewRequest(http.MethodPost, "/api/v1/admin/guests/abc/credits", strings.NewReader(`{"visits":5}`)),
		"chatID", "abc")
	rec := httptest.NewRecorder()
	h.GrantCredits(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGrantCreditsDefaultsToStandardPass(t *testing.T) {
	granter := &fakeGranter{}
	h := NewAdminGuestsHandler(&fakeDirectory{}, granter, nil).WithDefaultVisits(8)

	req := withRouteParam(
		httptest.NewRequest(http.MethodPost, "/api/v1/admin/guests/42/credits", strings.NewReader(`{}`)),
		"chatID", "42")
	rec := httptest.NewRecorder()
	h.GrantCredits(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 8, granter.visits, "omitted visits must grant one standard pass")
}

func TestGrantCreditsEmptyBodyDefaults(t *testing.T) {
	granter := &fakeGranter{}
	h := NewAdminGuestsHandler(&fakeDirectory{}, granter, nil).WithDefaultVisits(8)

	req := withRouteParam(
		httptest.NewRequest(http.MethodPost, "/api/v1/admin/guests/42/credits", nil),
		"chatID", "42")
	rec := httptest.NewRecorder()
	h.GrantCredits(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 8, granter.visits)
}

func TestGrantCreditsRejectsNegative(t *testing.T) {
	h := NewAdminGuestsHandler(&fakeDirectory{}, &fakeGranter{}, nil)

	req := withRouteParam(
		httptest.NewRequest(http.MethodPost, "/api/v1/admin/guests/42/credits", strings.NewReader(`{"visits":-1}`)),
		"chatID", "42")
	rec := httptest.NewRecorder()
	h.GrantCredits(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGrantCreditsBadJSON(t *testing.T) {
	h := NewAdminGuestsHandler(&fakeDirectory{}, &fakeGranter{}, nil)

	req := withRouteParam(
		httptest.NewRequest(http.MethodPost, "/api/v1/admin/guests/42/credits", strings.NewReader("{nope")),
		"chatID", "42")
	rec := httptest.NewRecorder()
	h.GrantCredits(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGrantCreditsLedgerError(t *testing.T) {
	h := NewAdminGuestsHandler(&fakeDirectory{}, &fakeGranter{err: assert.AnError}, nil)

	req := withRouteParam(
		httptest.NewRequest(http.MethodPost, "/api/v1/admin/guests/42/credits", strings.NewReader(`{"visits":5}`)),
		"chatID", "42")
	rec := httptest.NewRecorder()
	h.GrantCredits(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGrantCreditsAuditFailureStillSucceeds(t *testing.T) {
	recorder := &fakeGrantRecorder{err: assert.AnError}
	h := NewAdminGuestsHandler(&fakeDirectory{}, &fakeGranter{}, nil).WithRecorder(recorder)

	req := withRouteParam(
		httptest.NewRequest(http.MethodPost, "/api/v1/admin/guests/42/credits", strings.NewReader(`{"visits":3}`)),
		"chatID", "42")
	rec := httptest.NewRecorder()
	h.GrantCredits(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
