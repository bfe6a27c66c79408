package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ============================================================================
// Session
// ============================================================================

func TestLogin_Success(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/token", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "password", r.PostForm.Get("grant_type"))
		assert.Equal(t, "alice", r.PostForm.Get("username"))
		assert.Equal(t, "secret", r.PostForm.Get("password"))

		writeJSON(w, http.StatusOK, LoginResponse{AccessToken: "tok-123", TokenType: "bearer", ExpiresIn: 1800})
	})

	resp, err := New(srv.URL, "").Login(context.Background(), "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", resp.AccessToken)
	assert.Equal(t, 1800, resp.ExpiresIn)
}

func TestLogin_BadCredentials(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Incorrect username or password"})
	})

	_, err := New(srv.URL, "").Login(context.Background(), "alice", "wrong")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnauthorized))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "Incorrect username or password", apiErr.Error())
}

func TestMe_SendsBearerToken(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/me", r.URL.Path)
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, User{Username: "alice", FullName: "Alice Doe"})
	})

	user, err := New(srv.URL, "tok-123").Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "Alice Doe", user.FullName)
}

func TestRevoke_NotImplemented(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/token/revoke", r.URL.Path)
		writeJSON(w, http.StatusNotImplemented, map[string]string{"detail": "token revocation is disabled"})
	})

	_, err := New(srv.URL, "tok").Revoke(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotImplemented, apiErr.Status)
	assert.False(t, errors.Is(err, ErrUnauthorized))
}

// ============================================================================
// Market data
// ============================================================================

func TestSymbolInfo_MultipleTickers(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/symbol/info/['EURUSD','XAUUSD']", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"EURUSD":{"name":"EURUSD","digits":5,"bid":"1.08512"},"XAUUSD":null}`))
	})

	out, err := New(srv.URL, "tok").SymbolInfo(context.Background(), []string{"EURUSD", "XAUUSD"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.NotNil(t, out["EURUSD"])
	assert.Equal(t, 5, out["EURUSD"].Digits)
	assert.True(t, decimal.RequireFromString("1.08512").Equal(out["EURUSD"].Bid))
	assert.Nil(t, out["XAUUSD"])
}

func TestRatesFrom_QueryParameters(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/rates/from/EURUSD", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "H1", q.Get("timeframe"))
		assert.Equal(t, "2024-3-1", q.Get("date_from"))
		assert.Equal(t, "10", q.Get("count"))
		assert.False(t, q.Has("date_to"))
		assert.False(t, q.Has("start_pos"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"EURUSD":[{"time":"2024-03-01T00:00:00Z","open":"1.1","high":"1.2","low":"1.0","close":"1.15","tick_volume":42}]}`))
	})

	count := 10
	out, err := New(srv.URL, "tok").RatesFrom(context.Background(), []string{"EURUSD"}, Params{
		Timeframe: "H1",
		DateFrom:  "2024-3-1",
		Count:     &count,
	})
	require.NoError(t, err)
	rates := out["EURUSD"]
	require.NotNil(t, rates)
	require.Len(t, *rates, 1)
	assert.Equal(t, int64(42), (*rates)[0].TickVolume)
}

func TestSymbolsTotal(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/symbols/total", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]int{"total": 7})
	})

	total, err := New(srv.URL, "tok").SymbolsTotal(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, total)
}

func TestFieldError(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"detail": "invalid query parameter",
			"field":  "timeframe",
			"reason": "unknown_timeframe",
		})
	})

	_, err := New(srv.URL, "tok").RatesRange(context.Background(), []string{"EURUSD"}, Params{Timeframe: "H7"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "timeframe", apiErr.Field)
	assert.Equal(t, "unknown_timeframe", apiErr.Reason)
	assert.Contains(t, apiErr.Error(), "field timeframe")
}
