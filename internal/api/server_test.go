package api

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/97woo/tgbot/internal/state"
	"github.com/97woo/tgbot/internal/store"
	"github.com/97woo/tgbot/internal/types"
	"github.com/97woo/tgbot/internal/wallet"
)

func newTestServer(t *testing.T) (*Server, *state.SpendLedger, *state.DropHistory) {
	t.Helper()
	ctx := context.Background()

	st, err := store.NewFileStore(filepath.Join(t.TempDir(), "dropbot.json"))
	require.NoError(t, err)

	directory, err := wallet.NewDirectory(ctx, st)
	require.NoError(t, err)
	ledger, err := state.NewSpendLedger(ctx, st)
	require.NoError(t, err)
	history, err := state.NewDropHistory(ctx, st)
	require.NoError(t, err)

	srv := NewServer(&ServerConfig{
		Host:         "127.0.0.1",
		Port:         "0",
		RolloverHour: 9,
		DailyCapWei:  big.NewInt(1000),
	}, directory, ledger, history)

	return srv, ledger, history
}

func TestHealthEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	srv.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestStatsEndpoint(t *testing.T) {
	srv, ledger, _ := newTestServer(t)
	ctx := context.Background()

	require.NoError(t, ledger.Add(ctx, state.PeriodKey(time.Now(), 9), big.NewInt(300)))

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rr := httptest.NewRecorder()
	srv.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var body statsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "300", body.SpentWei)
	assert.Equal(t, "700", body.HeadroomWei)
	assert.Zero(t, body.Drops)
}

func TestDropsEndpoint(t *testing.T) {
	srv, _, history := newTestServer(t)
	ctx := context.Background()

	require.NoError(t, history.Append(ctx, types.DropRecord{ID: "1", TxHash: "0xaaa"}))
	require.NoError(t, history.Append(ctx, types.DropRecord{ID: "2", TxHash: "0xbbb"}))

	req := httptest.NewRequest(http.MethodGet, "/drops?limit=1", nil)
	rr := httptest.NewRecorder()
	srv.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var recs []types.DropRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, "2", recs[0].ID)
}

func TestDropsEndpointRejectsBadLimit(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/drops?limit=zero", nil)
	rr := httptest.NewRecorder()
	srv.router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
