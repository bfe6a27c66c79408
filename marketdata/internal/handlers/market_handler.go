package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/quoteline-systems/quoteline-stack/common/httputil"
	"github.com/quoteline-systems/quoteline-stack/common/logging"
	"github.com/quoteline-systems/quoteline-stack/marketdata/internal/metrics"
	"github.com/quoteline-systems/quoteline-stack/marketdata/internal/params"
	"github.com/quoteline-systems/quoteline-stack/marketdata/internal/provider"
	"github.com/quoteline-systems/quoteline-stack/marketdata/internal/service"
	"github.com/quoteline-systems/quoteline-stack/marketdata/pkg/symbols"
)

// groupParam is the only query parameter of the symbol listing.
const groupParam = "group"

type MarketHandler struct {
	market     *service.MarketService
	normalizer *params.Normalizer
}

func NewMarketHandler(market *service.MarketService, normalizer *params.Normalizer) *MarketHandler {
	return &MarketHandler{
		market:     market,
		normalizer: normalizer,
	}
}

func (h *MarketHandler) Terminal(w http.ResponseWriter, r *http.Request) {
	if !h.noParams(w, r) {
		return
	}
	v, err := h.market.Version(r.Context())
	h.respond(w, r, v, err)
}

func (h *MarketHandler) Symbols(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	for name, values := range q {
		if name != groupParam {
			h.paramError(w, &params.FieldError{Field: params.Key(name), Err: params.ErrUnknownParameter})
			return
		}
		if len(values) != 1 {
			h.paramError(w, &params.FieldError{Field: params.Key(name), Err: params.ErrRepeatedParameter})
			return
		}
	}

	out, err := h.market.Symbols(r.Context(), q.Get(groupParam))
	h.respond(w, r, out, err)
}

func (h *MarketHandler) SymbolsTotal(w http.ResponseWriter, r *http.Request) {
	if !h.noParams(w, r) {
		return
	}
	total, err := h.market.SymbolsTotal(r.Context())
	h.respond(w, r, map[string]int{"total": total}, err)
}

func (h *MarketHandler) SymbolInfo(w http.ResponseWriter, r *http.Request) {
	tickers, ok := h.symbolsOnly(w, r)
	if !ok {
		return
	}
	out, err := h.market.SymbolInfo(r.Context(), tickers)
	h.respond(w, r, out, err)
}

func (h *MarketHandler) SymbolTick(w http.ResponseWriter, r *http.Request) {
	tickers, ok := h.symbolsOnly(w, r)
	if !ok {
		return
	}
	out, err := h.market.SymbolTick(r.Context(), tickers)
	h.respond(w, r, out, err)
}

func (h *MarketHandler) Book(w http.ResponseWriter, r *http.Request) {
	tickers, ok := h.symbolsOnly(w, r)
	if !ok {
		return
	}
	out, err := h.market.Book(r.Context(), tickers)
	h.respond(w, r, out, err)
}

func (h *MarketHandler) RatesRange(w http.ResponseWriter, r *http.Request) {
	query, ok := h.query(w, r, params.RatesRangeKeys...)
	if !ok {
		return
	}
	out, err := h.market.RatesRange(r.Context(), query)
	h.respond(w, r, out, err)
}

func (h *MarketHandler) RatesFrom(w http.ResponseWriter, r *http.Request) {
	query, ok := h.query(w, r, params.RatesFromKeys...)
	if !ok {
		return
	}
	out, err := h.market.RatesFrom(r.Context(), query)
	h.respond(w, r, out, err)
}

func (h *MarketHandler) RatesFromPos(w http.ResponseWriter, r *http.Request) {
	query, ok := h.query(w, r, params.RatesFromPosKeys...)
	if !ok {
		return
	}
	out, err := h.market.RatesFromPos(r.Context(), query)
	h.respond(w, r, out, err)
}

func (h *MarketHandler) TicksRange(w http.ResponseWriter, r *http.Request) {
	query, ok := h.query(w, r, params.TicksRangeKeys...)
	if !ok {
		return
	}
	out, err := h.market.TicksRange(r.Context(), query)
	h.respond(w, r, out, err)
}

func (h *MarketHandler) TicksFrom(w http.ResponseWriter, r *http.Request) {
	query, ok := h.query(w, r, params.TicksFromKeys...)
	if !ok {
		return
	}
	out, err := h.market.TicksFrom(r.Context(), query)
	h.respond(w, r, out, err)
}

// query builds the provider query from the {symbol} path segment and the
// URL parameters. On failure it has already written a 400.
func (h *MarketHandler) query(w http.ResponseWriter, r *http.Request, keys ...params.Key) (*params.Query, bool) {
	tickers, ok := h.parseSymbols(w, r)
	if !ok {
		return nil, false
	}

	raw, err := params.FromQuery(r.URL.Query(), keys...)
	if err != nil {
		h.paramError(w, err)
		return nil, false
	}
	values, err := h.normalizer.Normalize(raw, keys...)
	if err != nil {
		h.paramError(w, err)
		return nil, false
	}

	return &params.Query{Symbols: tickers, Params: values}, true
}

func (h *MarketHandler) symbolsOnly(w http.ResponseWriter, r *http.Request) ([]string, bool) {
	if !h.noParams(w, r) {
		return nil, false
	}
	return h.parseSymbols(w, r)
}

func (h *MarketHandler) parseSymbols(w http.ResponseWriter, r *http.Request) ([]string, bool) {
	tickers, err := symbols.Parse(r.PathValue("symbol"))
	if err != nil {
		metrics.ParamErrors.WithLabelValues("symbol", "malformed_symbol_list").Inc()
		httputil.WriteFieldError(w, http.StatusBadRequest, "symbol", "malformed_symbol_list", err.Error())
		return nil, false
	}
	return tickers, true
}

func (h *MarketHandler) noParams(w http.ResponseWriter, r *http.Request) bool {
	if _, err := params.FromQuery(r.URL.Query()); err != nil {
		h.paramError(w, err)
		return false
	}
	return true
}

func (h *MarketHandler) paramError(w http.ResponseWriter, err error) {
	var fieldErr *params.FieldError
	if !errors.As(err, &fieldErr) {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	metrics.ParamErrors.WithLabelValues(string(fieldErr.Field), fieldErr.Reason()).Inc()
	httputil.WriteFieldError(w, http.StatusBadRequest, string(fieldErr.Field), fieldErr.Reason(), fieldErr.Error())
}

func (h *MarketHandler) respond(w http.ResponseWriter, r *http.Request, data any, err error) {
	if err == nil {
		httputil.WriteJSON(w, http.StatusOK, data)
		return
	}
	if errors.Is(err, provider.ErrNoData) {
		httputil.WriteJSON(w, http.StatusOK, nil)
		return
	}
	if errors.Is(err, context.Canceled) {
		return
	}

	logging.Default().WithContext(r.Context()).Error("Provider request failed",
		logging.Path(r.URL.Path),
		logging.Error(err),
	)
	if errors.Is(err, context.DeadlineExceeded) {
		httputil.WriteError(w, http.StatusGatewayTimeout, "market data provider timed out")
		return
	}
	httputil.WriteError(w, http.StatusBadGateway, "market data provider unavailable")
}
