package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JayIsLate/tradejournal-sub000/internal/domain"
	"github.com/JayIsLate/tradejournal-sub000/internal/service"
	"github.com/JayIsLate/tradejournal-sub000/internal/store/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type entryFixture struct {
	handler *EntryHandler
	store   *memory.LedgerStore
	audit   *memory.AuditStore
}

func newEntryFixture(t *testing.T) *entryFixture {
	t.Helper()
	store := memory.NewLedgerStore()
	audit := memory.NewAuditStore()
	svc := service.NewLedgerService(store, audit, testLogger())
	return &entryFixture{
		handler: NewEntryHandler(svc, testLogger()),
		store:   store,
		audit:   audit,
	}
}

func seedEntry(t *testing.T, store *memory.LedgerStore, symbol string, at time.Time) domain.LedgerEntry {
	t.Helper()
	origin := "sig-" + uuid.NewString()
	e := domain.LedgerEntry{
		ID:         uuid.NewString(),
		OriginID:   &origin,
		Chain:      domain.ChainSolana,
		Symbol:     symbol,
		Direction:  domain.DirectionBuy,
		UnitPrice:  2,
		Quantity:   10,
		BaseSymbol: "USDC",
		TotalBase:  20,
		OccurredAt: at,
		Status:     domain.EntryStatusOpen,
	}
	require.NoError(t, store.InsertMany(context.Background(), []domain.LedgerEntry{e}))
	return e
}

func TestListEntries(t *testing.T) {
	fx := newEntryFixture(t)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	seedEntry(t, fx.store, "TOKX", at)
	seedEntry(t, fx.store, "TOKY", at.Add(time.Hour))

	req := httptest.NewRequest(http.MethodGet, "/api/entries", nil)
	rec := httptest.NewRecorder()
	fx.handler.ListEntries(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Entries []entryJSON `json:"entries"`
		Count   int         `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 2, body.Count)
	assert.Equal(t, "TOKY", body.Entries[0].Symbol)
	assert.Equal(t, "TOKX", body.Entries[1].Symbol)
	assert.Equal(t, "2026-03-01T12:00:00Z", body.Entries[1].OccurredAt)
}

func TestListEntriesRejectsBadDirection(t *testing.T) {
	fx := newEntryFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/entries?direction=hold", nil)
	rec := httptest.NewRecorder()
	fx.handler.ListEntries(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "direction")
}

func TestGetByOrigin(t *testing.T) {
	fx := newEntryFixture(t)
	e := seedEntry(t, fx.store, "TOKX", time.Now().UTC())

	req := httptest.NewRequest(http.MethodGet, "/api/entries/origin/"+*e.OriginID, nil)
	req.SetPathValue("id", *e.OriginID)
	rec := httptest.NewRecorder()
	fx.handler.GetByOrigin(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got entryJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, e.ID, got.ID)

	req = httptest.NewRequest(http.MethodGet, "/api/entries/origin/nope", nil)
	req.SetPathValue("id", "nope")
	rec = httptest.NewRecorder()
	fx.handler.GetByOrigin(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPatchEntryAndAudit(t *testing.T) {
	fx := newEntryFixture(t)
	e := seedEntry(t, fx.store, "Unknown", time.Now().UTC())

	body := `{"symbol":"TOKX","status":"closed"}`
	req := httptest.NewRequest(http.MethodPatch, "/api/entries/"+e.ID, strings.NewReader(body))
	req.SetPathValue("id", e.ID)
	rec := httptest.NewRecorder()
	fx.handler.PatchEntry(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	got, err := fx.store.GetByOriginID(context.Background(), *e.OriginID)
	require.NoError(t, err)
	assert.Equal(t, "TOKX", got.Symbol)
	assert.Equal(t, domain.EntryStatusClosed, got.Status)

	rows, err := fx.audit.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "entry_patched", rows[0].Event)
}

func TestPatchEntryRejectsBadStatus(t *testing.T) {
	fx := newEntryFixture(t)
	e := seedEntry(t, fx.store, "TOKX", time.Now().UTC())

	req := httptest.NewRequest(http.MethodPatch, "/api/entries/"+e.ID, strings.NewReader(`{"status":"paused"}`))
	req.SetPathValue("id", e.ID)
	rec := httptest.NewRecorder()
	fx.handler.PatchEntry(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteEntry(t *testing.T) {
	fx := newEntryFixture(t)
	e := seedEntry(t, fx.store, "TOKX", time.Now().UTC())

	req := httptest.NewRequest(http.MethodDelete, "/api/entries/"+e.ID, nil)
	req.SetPathValue("id", e.ID)
	rec := httptest.NewRecorder()
	fx.handler.DeleteEntry(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	n, err := fx.store.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	rec = httptest.NewRecorder()
	fx.handler.DeleteEntry(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddAddressConflict(t *testing.T) {
	settings := memory.NewSettingsStore()
	watchlist := service.NewWatchlistService(settings, nil, testLogger())
	h := NewAddressHandler(watchlist, testLogger())

	body := `{"address":"wallet-1","chain":"solana","label":"test"}`
	req := httptest.NewRequest(http.MethodPost, "/api/addresses", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.AddAddress(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/addresses", strings.NewReader(body))
	rec = httptest.NewRecorder()
	h.AddAddress(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/addresses", strings.NewReader(`{"address":"x","chain":"dogechain"}`))
	rec = httptest.NewRecorder()
	h.AddAddress(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
