package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/quoteline-systems/quoteline-stack/common/httputil"
	"github.com/quoteline-systems/quoteline-stack/common/middleware"
	"github.com/quoteline-systems/quoteline-stack/marketdata/internal/handlers"
	authmw "github.com/quoteline-systems/quoteline-stack/marketdata/internal/middleware"
	"github.com/quoteline-systems/quoteline-stack/marketdata/internal/models"
	"github.com/quoteline-systems/quoteline-stack/marketdata/internal/params"
	"github.com/quoteline-systems/quoteline-stack/marketdata/internal/provider"
	"github.com/quoteline-systems/quoteline-stack/marketdata/internal/repository"
	"github.com/quoteline-systems/quoteline-stack/marketdata/internal/revocation"
	"github.com/quoteline-systems/quoteline-stack/marketdata/internal/service"
	"github.com/quoteline-systems/quoteline-stack/marketdata/pkg/tokens"
)

// ============================================================================
// Test Setup
// ============================================================================

var today = time.Date(2024, 8, 31, 15, 4, 5, 0, time.UTC)

func clock() time.Time { return today }

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := repository.NewInMemoryRepository(
		&models.User{Username: "bob", FullName: "Bob", Email: "bob@example.com", PasswordHash: string(hash)},
		&models.User{Username: "carol", PasswordHash: string(hash), Disabled: true},
	)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	authService := service.NewAuthService(repo, tokens.NewManager("router-secret", 30*time.Minute), nil, revocation.NewRedisStore(client), nil)

	registry, err := params.NewRegistry(params.StandardDefaults())
	require.NoError(t, err)
	normalizer := params.NewNormalizer(registry, params.WithClock(clock))
	market := service.NewMarketService(provider.NewMemoryProvider(clock, "PETR4", "VALE3"))

	return NewRouter(Handlers{
		Auth:   handlers.NewAuthHandler(authService),
		Market: handlers.NewMarketHandler(market, normalizer),
		Health: handlers.NewHealthHandler("marketdata", market.ProviderName(), nil),
	}, authmw.NewAuthMiddleware(authService), Options{
		CORS: middleware.CORSConfig{AllowedOrigins: []string{"https://app.example.com"}, AllowedMethods: []string{"GET", "POST"}},
	})
}

func login(t *testing.T, router http.Handler, username, password string) *httptest.ResponseRecorder {
	t.Helper()
	form := url.Values{"username": {username}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func bearer(t *testing.T, router http.Handler) string {
	t.Helper()
	rr := login(t, router, "bob", "secret")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var resp models.TokenResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return "Bearer " + resp.AccessToken
}

func get(router http.Handler, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) httputil.ErrorResponse {
	t.Helper()
	var resp httputil.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp), rr.Body.String())
	return resp
}

// ============================================================================
// Token Endpoint Tests
// ============================================================================

func TestLogin_Success(t *testing.T) {
	router := newTestRouter(t)

	rr := login(t, router, "bob", "secret")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp models.TokenResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "bearer", resp.TokenType)
	assert.Equal(t, 1800, resp.ExpiresIn)
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
}

func TestLogin_FailuresAreGeneric(t *testing.T) {
	router := newTestRouter(t)

	wrong := login(t, router, "bob", "wrong")
	unknown := login(t, router, "nobody", "secret")

	for _, rr := range []*httptest.ResponseRecorder{wrong, unknown} {
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, "Bearer", rr.Header().Get("WWW-Authenticate"))
		assert.Equal(t, "Incorrect username or password", decodeError(t, rr).Detail)
	}
	assert.Equal(t, wrong.Body.String(), unknown.Body.String())
}

func TestLogin_MissingField(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader("username=bob"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "password", decodeError(t, rr).Field)
}

func TestLogin_UnsupportedGrant(t *testing.T) {
	router := newTestRouter(t)

	form := url.Values{"username": {"bob"}, "password": {"secret"}, "grant_type": {"client_credentials"}}
	req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "unsupported_grant_type", decodeError(t, rr).Reason)
}

func TestLogin_DisabledUserGetsTokenButIsForbidden(t *testing.T) {
	router := newTestRouter(t)

	rr := login(t, router, "carol", "secret")
	require.Equal(t, http.StatusOK, rr.Code)
	var resp models.TokenResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

	me := get(router, "/users/me", "Bearer "+resp.AccessToken)
	assert.Equal(t, http.StatusForbidden, me.Code)
	assert.Equal(t, "Inactive user", decodeError(t, me).Detail)
}

func TestMe(t *testing.T) {
	router := newTestRouter(t)

	rr := get(router, "/users/me", bearer(t, router))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"username":"bob","full_name":"Bob","email":"bob@example.com","disabled":false}`, rr.Body.String())
	assert.NotContains(t, rr.Body.String(), "$2a$")
}

func TestIndex(t *testing.T) {
	router := newTestRouter(t)

	assert.Equal(t, http.StatusUnauthorized, get(router, "/", "").Code)

	rr := get(router, "/", bearer(t, router))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `"marketdata API"`, rr.Body.String())
}

func TestRevoke(t *testing.T) {
	router := newTestRouter(t)
	auth := bearer(t, router)

	req := httptest.NewRequest(http.MethodPost, "/token/revoke", nil)
	req.Header.Set("Authorization", auth)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp models.RevokeResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Revoked)

	after := get(router, "/users/me", auth)
	assert.Equal(t, http.StatusUnauthorized, after.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{
		"/api/v1/terminal",
		"/api/v1/symbols",
		"/api/v1/symbol/info/PETR4",
		"/api/v1/rates/range/PETR4",
		"/api/v1/ticks/from/PETR4",
	} {
		rr := get(router, path, "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code, path)
		assert.Equal(t, "Bearer", rr.Header().Get("WWW-Authenticate"), path)

		rr = get(router, path, "Bearer invalid")
		assert.Equal(t, http.StatusUnauthorized, rr.Code, path)
	}
}

// ============================================================================
// Market Data Endpoint Tests
// ============================================================================

func TestSymbolInfo_List(t *testing.T) {
	router := newTestRouter(t)

	path := "/api/v1/symbol/info/" + url.PathEscape("['petr4','NOPE3','vale3']")
	rr := get(router, path, bearer(t, router))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Len(t, body, 3)
	assert.Equal(t, "null", string(body["NOPE3"]))
	assert.Contains(t, string(body["PETR4"]), `"name":"PETR4"`)
	assert.True(t, strings.Index(rr.Body.String(), "PETR4") < strings.Index(rr.Body.String(), "VALE3"))
}

func TestSymbolInfo_MalformedList(t *testing.T) {
	router := newTestRouter(t)

	rr := get(router, "/api/v1/symbol/info/"+url.PathEscape("['PETR4'"), bearer(t, router))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	resp := decodeError(t, rr)
	assert.Equal(t, "symbol", resp.Field)
	assert.Equal(t, "malformed_symbol_list", resp.Reason)
}

func TestSymbolTickAndBook(t *testing.T) {
	router := newTestRouter(t)
	auth := bearer(t, router)

	tick := get(router, "/api/v1/symbol/info/tick/petr4", auth)
	require.Equal(t, http.StatusOK, tick.Code)
	assert.Contains(t, tick.Body.String(), `"PETR4":{`)

	book := get(router, "/api/v1/book/VALE3", auth)
	require.Equal(t, http.StatusOK, book.Code)
	assert.Contains(t, book.Body.String(), `"type":"sell"`)
}

func TestRatesRange_Defaults(t *testing.T) {
	router := newTestRouter(t)

	rr := get(router, "/api/v1/rates/range/PETR4", bearer(t, router))
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string][]provider.Rate
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	rates := body["PETR4"]
	require.NotEmpty(t, rates)
	assert.True(t, rates[0].Time.Equal(time.Date(2023, 8, 31, 0, 0, 0, 0, time.UTC)))
	assert.True(t, rates[len(rates)-1].Time.Equal(time.Date(2024, 8, 31, 0, 0, 0, 0, time.UTC)))
}

func TestRatesFrom_EmptyParametersUseDefaults(t *testing.T) {
	router := newTestRouter(t)
	token := bearer(t, router)

	empty := get(router, "/api/v1/rates/from/PETR4?timeframe=&count=", token)
	require.Equal(t, http.StatusOK, empty.Code, empty.Body.String())

	bare := get(router, "/api/v1/rates/from/PETR4", token)
	require.Equal(t, http.StatusOK, bare.Code)
	assert.JSONEq(t, bare.Body.String(), empty.Body.String())
}

func TestRatesRange_RelativeParameters(t *testing.T) {
	router := newTestRouter(t)

	rr := get(router, "/api/v1/rates/range/PETR4?timeframe=D1&date_from=TRAILING_20D&date_to=TODAY", bearer(t, router))
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string][]provider.Rate
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Len(t, body["PETR4"], 21)
}

func TestRatesFromPos(t *testing.T) {
	router := newTestRouter(t)

	rr := get(router, "/api/v1/rates/from/pos/VALE3?timeframe=H4&start_pos=0&count=6", bearer(t, router))
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string][]provider.Rate
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Len(t, body["VALE3"], 6)
}

func TestTicksFrom(t *testing.T) {
	router := newTestRouter(t)

	rr := get(router, "/api/v1/ticks/from/PETR4?date_from=2024-8-1&count=10&flags=TRADE", bearer(t, router))
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string][]provider.Tick
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body["PETR4"], 10)
	for _, tick := range body["PETR4"] {
		assert.Equal(t, provider.TickLast|provider.TickVolume, tick.Flags)
	}
}

func TestMarketParameterErrors(t *testing.T) {
	router := newTestRouter(t)
	auth := bearer(t, router)

	tests := []struct {
		name   string
		path   string
		field  string
		reason string
	}{
		{"unknown timeframe", "/api/v1/rates/range/PETR4?timeframe=H2", "timeframe", "unknown_timeframe"},
		{"unknown flag", "/api/v1/ticks/range/PETR4?flags=SOME", "flags", "unknown_flag"},
		{"invalid date", "/api/v1/rates/range/PETR4?date_from=yesterday", "date_from", "invalid_date"},
		{"invalid count", "/api/v1/rates/from/PETR4?count=ten", "count", "invalid_integer"},
		{"negative start", "/api/v1/rates/from/pos/PETR4?start_pos=-1", "start_pos", "invalid_integer"},
		{"parameter of another family", "/api/v1/rates/range/PETR4?count=5", "count", "unknown_parameter"},
		{"repeated parameter", "/api/v1/ticks/from/PETR4?count=1&count=2", "count", "repeated_parameter"},
		{"parameter on info", "/api/v1/symbol/info/PETR4?timeframe=D1", "timeframe", "unknown_parameter"},
		{"unknown symbols parameter", "/api/v1/symbols?filter=x", "filter", "unknown_parameter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := get(router, tt.path, auth)
			require.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
			resp := decodeError(t, rr)
			assert.Equal(t, tt.field, resp.Field)
			assert.Equal(t, tt.reason, resp.Reason)
			assert.NotEmpty(t, resp.Detail)
		})
	}
}

func TestSymbolsAndTerminal(t *testing.T) {
	router := newTestRouter(t)
	auth := bearer(t, router)

	rr := get(router, "/api/v1/symbols?group=vale*", auth)
	require.Equal(t, http.StatusOK, rr.Code)
	var symbols []provider.SymbolInfo
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &symbols))
	require.Len(t, symbols, 1)
	assert.Equal(t, "VALE3", symbols[0].Name)

	total := get(router, "/api/v1/symbols/total", auth)
	require.Equal(t, http.StatusOK, total.Code)
	assert.JSONEq(t, `{"total":2}`, total.Body.String())

	terminal := get(router, "/api/v1/terminal", auth)
	require.Equal(t, http.StatusOK, terminal.Code)
	assert.Contains(t, terminal.Body.String(), `"build":4000`)
}

// ============================================================================
// Public Endpoint Tests
// ============================================================================

func TestHealthz(t *testing.T) {
	rr := get(newTestRouter(t), "/healthz", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"healthy","service":"marketdata","provider":"memory"}`, rr.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t)
	login(t, router, "bob", "secret")

	rr := get(router, "/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "quoteline_marketdata_requests_total")
}

func TestRequestIDAndCORS(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	assert.Equal(t, "https://app.example.com", rr.Header().Get("Access-Control-Allow-Origin"))
}
