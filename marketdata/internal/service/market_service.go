package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quoteline-systems/quoteline-stack/common/logging"
	"github.com/quoteline-systems/quoteline-stack/marketdata/internal/metrics"
	"github.com/quoteline-systems/quoteline-stack/marketdata/internal/params"
	"github.com/quoteline-systems/quoteline-stack/marketdata/internal/provider"
)

// DefaultFanOut bounds concurrent provider calls per request.
const DefaultFanOut = 8

// BySymbol holds one result per requested symbol, in request order. A
// symbol the provider had no data for maps to null. Repeated symbols are
// reported once.
type BySymbol[T any] struct {
	symbols []string
	values  map[string]T
}

// Symbols returns the distinct symbols in request order.
func (b *BySymbol[T]) Symbols() []string { return b.symbols }

// Get returns the value for symbol; ok is false when it is null.
func (b *BySymbol[T]) Get(symbol string) (T, bool) {
	v, ok := b.values[symbol]
	return v, ok
}

func (b *BySymbol[T]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, sym := range b.symbols {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(sym)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		v, ok := b.values[sym]
		if !ok {
			buf.WriteString("null")
			continue
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		buf.Write(data)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type MarketService struct {
	provider provider.Provider
	fanOut   int
}

func NewMarketService(p provider.Provider) *MarketService {
	return &MarketService{provider: p, fanOut: DefaultFanOut}
}

// ProviderName identifies the backing provider for health output.
func (s *MarketService) ProviderName() string { return s.provider.Name() }

func (s *MarketService) Version(ctx context.Context) (*provider.TerminalVersion, error) {
	start := time.Now()
	v, err := s.provider.Version(ctx)
	metrics.ObserveProvider("version", start, err)
	return v, err
}

// Symbols lists the terminal's symbols, optionally filtered by group. Group
// patterns are matched upper-cased.
func (s *MarketService) Symbols(ctx context.Context, group string) ([]provider.SymbolInfo, error) {
	start := time.Now()
	out, err := s.provider.Symbols(ctx, strings.ToUpper(group))
	metrics.ObserveProvider("symbols", start, err)
	return out, err
}

func (s *MarketService) SymbolsTotal(ctx context.Context) (int, error) {
	start := time.Now()
	n, err := s.provider.SymbolsTotal(ctx)
	metrics.ObserveProvider("symbols_total", start, err)
	return n, err
}

func (s *MarketService) SymbolInfo(ctx context.Context, symbols []string) (*BySymbol[*provider.SymbolInfo], error) {
	return fanOut(ctx, s, "symbol_info", symbols, s.provider.SymbolInfo)
}

func (s *MarketService) SymbolTick(ctx context.Context, symbols []string) (*BySymbol[*provider.Tick], error) {
	return fanOut(ctx, s, "symbol_tick", symbols, s.provider.SymbolTick)
}

func (s *MarketService) Book(ctx context.Context, symbols []string) (*BySymbol[[]provider.BookEntry], error) {
	return fanOut(ctx, s, "book", symbols, s.provider.Book)
}

func (s *MarketService) RatesRange(ctx context.Context, q *params.Query) (*BySymbol[[]provider.Rate], error) {
	v := q.Params
	return fanOut(ctx, s, "rates_range", q.Symbols, func(ctx context.Context, sym string) ([]provider.Rate, error) {
		return s.provider.RatesRange(ctx, sym, v.Timeframe, v.DateFrom, v.DateTo)
	})
}

func (s *MarketService) RatesFrom(ctx context.Context, q *params.Query) (*BySymbol[[]provider.Rate], error) {
	v := q.Params
	return fanOut(ctx, s, "rates_from", q.Symbols, func(ctx context.Context, sym string) ([]provider.Rate, error) {
		return s.provider.RatesFrom(ctx, sym, v.Timeframe, v.DateFrom, v.Count)
	})
}

func (s *MarketService) RatesFromPos(ctx context.Context, q *params.Query) (*BySymbol[[]provider.Rate], error) {
	v := q.Params
	return fanOut(ctx, s, "rates_from_pos", q.Symbols, func(ctx context.Context, sym string) ([]provider.Rate, error) {
		return s.provider.RatesFromPos(ctx, sym, v.Timeframe, v.StartPos, v.Count)
	})
}

func (s *MarketService) TicksRange(ctx context.Context, q *params.Query) (*BySymbol[[]provider.Tick], error) {
	v := q.Params
	return fanOut(ctx, s, "ticks_range", q.Symbols, func(ctx context.Context, sym string) ([]provider.Tick, error) {
		return s.provider.TicksRange(ctx, sym, v.DateFrom, v.DateTo, v.Flags)
	})
}

func (s *MarketService) TicksFrom(ctx context.Context, q *params.Query) (*BySymbol[[]provider.Tick], error) {
	v := q.Params
	return fanOut(ctx, s, "ticks_from", q.Symbols, func(ctx context.Context, sym string) ([]provider.Tick, error) {
		return s.provider.TicksFrom(ctx, sym, v.DateFrom, v.Count, v.Flags)
	})
}

// fanOut calls fetch once per distinct symbol, concurrently, and collects
// the results in request order. provider.ErrNoData marks a symbol null; any
// other error fails the whole request.
func fanOut[T any](ctx context.Context, s *MarketService, operation string, symbols []string, fetch func(context.Context, string) (T, error)) (*BySymbol[T], error) {
	distinct := make([]string, 0, len(symbols))
	seen := make(map[string]bool, len(symbols))
	for _, sym := range symbols {
		if !seen[sym] {
			seen[sym] = true
			distinct = append(distinct, sym)
		}
	}

	results := make([]T, len(distinct))
	found := make([]bool, len(distinct))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.fanOut)
	for i, sym := range distinct {
		g.Go(func() error {
			start := time.Now()
			v, err := fetch(gctx, sym)
			if errors.Is(err, provider.ErrNoData) {
				metrics.ObserveProvider(operation, start, nil)
				slog.Debug("No data for symbol", logging.Symbol(sym), slog.String("operation", operation))
				return nil
			}
			metrics.ObserveProvider(operation, start, err)
			if err != nil {
				return err
			}
			results[i] = v
			found[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &BySymbol[T]{symbols: distinct, values: make(map[string]T, len(distinct))}
	for i, sym := range distinct {
		if found[i] {
			out.values[sym] = results[i]
		}
	}
	return out, nil
}
