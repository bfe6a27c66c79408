package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quoteline-systems/quoteline-stack/marketdata/internal/params"
	"github.com/quoteline-systems/quoteline-stack/marketdata/internal/provider"
)

var marketNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

// flakyProvider fails calls for one symbol and counts the rest.
type flakyProvider struct {
	*provider.MemoryProvider
	failFor string
	calls   atomic.Int32
}

func (f *flakyProvider) SymbolTick(ctx context.Context, symbol string) (*provider.Tick, error) {
	f.calls.Add(1)
	if symbol == f.failFor {
		return nil, provider.ErrUnavailable
	}
	return f.MemoryProvider.SymbolTick(ctx, symbol)
}

func newMarket() *MarketService {
	return NewMarketService(provider.NewMemoryProvider(func() time.Time { return marketNow }, "PETR4", "VALE3", "ITUB4"))
}

func TestMarket_SymbolInfoKeepsOrderAndNulls(t *testing.T) {
	res, err := newMarket().SymbolInfo(context.Background(), []string{"VALE3", "NOPE3", "PETR4"})
	require.NoError(t, err)

	assert.Equal(t, []string{"VALE3", "NOPE3", "PETR4"}, res.Symbols())
	_, ok := res.Get("NOPE3")
	assert.False(t, ok)
	info, ok := res.Get("PETR4")
	require.True(t, ok)
	assert.Equal(t, "PETR4", info.Name)

	data, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Regexp(t, `^\{"VALE3":\{.*\},"NOPE3":null,"PETR4":\{.*\}\}$`, string(data))
}

func TestMarket_DuplicateSymbolsFetchedOnce(t *testing.T) {
	p := &flakyProvider{MemoryProvider: provider.NewMemoryProvider(nil, "PETR4")}
	svc := NewMarketService(p)

	res, err := svc.SymbolTick(context.Background(), []string{"PETR4", "PETR4"})
	require.NoError(t, err)
	assert.Equal(t, []string{"PETR4"}, res.Symbols())
	assert.Equal(t, int32(1), p.calls.Load())
}

func TestMarket_ProviderFailureFailsRequest(t *testing.T) {
	p := &flakyProvider{MemoryProvider: provider.NewMemoryProvider(nil, "PETR4", "VALE3"), failFor: "VALE3"}
	svc := NewMarketService(p)

	_, err := svc.SymbolTick(context.Background(), []string{"PETR4", "VALE3"})
	assert.True(t, errors.Is(err, provider.ErrUnavailable))
}

func TestMarket_RatesRange(t *testing.T) {
	q := &params.Query{
		Symbols: []string{"PETR4", "VALE3"},
		Params: &params.Values{
			Timeframe: params.TimeframeD1,
			DateFrom:  time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			DateTo:    time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		},
	}

	res, err := newMarket().RatesRange(context.Background(), q)
	require.NoError(t, err)
	for _, sym := range q.Symbols {
		rates, ok := res.Get(sym)
		require.True(t, ok, sym)
		assert.Len(t, rates, 5)
	}
}

func TestMarket_RatesFromPosAndTicks(t *testing.T) {
	svc := newMarket()
	ctx := context.Background()

	rates, err := svc.RatesFromPos(ctx, &params.Query{
		Symbols: []string{"ITUB4"},
		Params:  &params.Values{Timeframe: params.TimeframeH1, StartPos: 0, Count: 3},
	})
	require.NoError(t, err)
	got, _ := rates.Get("ITUB4")
	assert.Len(t, got, 3)

	ticks, err := svc.TicksFrom(ctx, &params.Query{
		Symbols: []string{"ITUB4"},
		Params:  &params.Values{DateFrom: marketNow, Count: 4, Flags: params.TickFlagAll},
	})
	require.NoError(t, err)
	gotTicks, _ := ticks.Get("ITUB4")
	assert.Len(t, gotTicks, 4)
}

func TestMarket_SymbolsGroupUpperCased(t *testing.T) {
	symbols, err := newMarket().Symbols(context.Background(), "petr*")
	require.NoError(t, err)
	require.Len(t, symbols, 1)
	assert.Equal(t, "PETR4", symbols[0].Name)
}

func TestBySymbol_EmptyMarshal(t *testing.T) {
	data, err := json.Marshal(&BySymbol[int]{})
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(data))
}
