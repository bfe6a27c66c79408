package server

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quoteline-systems/quoteline-stack/common/middleware"

	"github.com/quoteline-systems/quoteline-stack/marketdata/internal/handlers"
	"github.com/quoteline-systems/quoteline-stack/marketdata/internal/metrics"
	authmw "github.com/quoteline-systems/quoteline-stack/marketdata/internal/middleware"
)

// Handlers groups the HTTP handlers the router dispatches to.
type Handlers struct {
	Auth   *handlers.AuthHandler
	Market *handlers.MarketHandler
	Health *handlers.HealthHandler
}

// Options configures the middleware chain around the mux.
type Options struct {
	CORS      middleware.CORSConfig
	AccessLog *slog.Logger
}

// NewRouter constructs a ServeMux with the token and market-data routes
// registered.
func NewRouter(h Handlers, authMW *authmw.AuthMiddleware, opts Options) http.Handler {
	mux := http.NewServeMux()

	public := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, metrics.Instrument(pattern, fn))
	}
	protected := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, metrics.Instrument(pattern, authMW.RequireAuth(fn)))
	}

	// Token endpoints
	public("POST /token", h.Auth.Login)
	protected("POST /token/revoke", h.Auth.Revoke)
	protected("GET /users/me", h.Auth.Me)
	protected("GET /{$}", h.Auth.Index)

	// Market data
	protected("GET /api/v1/terminal", h.Market.Terminal)
	protected("GET /api/v1/symbols", h.Market.Symbols)
	protected("GET /api/v1/symbols/total", h.Market.SymbolsTotal)
	protected("GET /api/v1/symbol/info/{symbol}", h.Market.SymbolInfo)
	protected("GET /api/v1/symbol/info/tick/{symbol}", h.Market.SymbolTick)
	protected("GET /api/v1/book/{symbol}", h.Market.Book)
	protected("GET /api/v1/rates/range/{symbol}", h.Market.RatesRange)
	protected("GET /api/v1/rates/from/{symbol}", h.Market.RatesFrom)
	protected("GET /api/v1/rates/from/pos/{symbol}", h.Market.RatesFromPos)
	protected("GET /api/v1/ticks/range/{symbol}", h.Market.TicksRange)
	protected("GET /api/v1/ticks/from/{symbol}", h.Market.TicksFrom)

	// Health and metrics (public)
	mux.HandleFunc("GET /healthz", h.Health.HealthCheck)
	mux.Handle("GET /metrics", promhttp.Handler())

	var handler http.Handler = mux
	handler = middleware.CORS(opts.CORS)(handler)
	if opts.AccessLog != nil {
		handler = middleware.AccessLog(opts.AccessLog)(handler)
	}
	return middleware.RequestID(handler)
}
