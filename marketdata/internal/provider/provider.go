// Package provider is the boundary to the broker terminal that actually
// serves market data.
package provider

import (
	"context"
	"errors"
	"time"

	"github.com/quoteline-systems/quoteline-stack/marketdata/internal/params"
)

var (
	// ErrNoData means the terminal has nothing for the symbol, for example
	// an unknown ticker. Callers report such symbols as null.
	ErrNoData = errors.New("no data for symbol")

	// ErrUnavailable wraps transport and terminal failures.
	ErrUnavailable = errors.New("market data provider unavailable")
)

// Provider exposes the terminal's market-data functions. Every method is
// safe for concurrent use.
type Provider interface {
	Name() string

	Version(ctx context.Context) (*TerminalVersion, error)
	Symbols(ctx context.Context, group string) ([]SymbolInfo, error)
	SymbolsTotal(ctx context.Context) (int, error)
	SymbolInfo(ctx context.Context, symbol string) (*SymbolInfo, error)
	SymbolTick(ctx context.Context, symbol string) (*Tick, error)
	Book(ctx context.Context, symbol string) ([]BookEntry, error)

	RatesRange(ctx context.Context, symbol string, tf params.Timeframe, from, to time.Time) ([]Rate, error)
	RatesFrom(ctx context.Context, symbol string, tf params.Timeframe, from time.Time, count int) ([]Rate, error)
	RatesFromPos(ctx context.Context, symbol string, tf params.Timeframe, startPos, count int) ([]Rate, error)

	TicksRange(ctx context.Context, symbol string, from, to time.Time, flags params.TickFlag) ([]Tick, error)
	TicksFrom(ctx context.Context, symbol string, from time.Time, count int, flags params.TickFlag) ([]Tick, error)
}
