package provider

import (
	"time"

	"github.com/shopspring/decimal"
)

// TerminalVersion identifies the terminal build behind the provider.
type TerminalVersion struct {
	Version     string `json:"version"`
	Build       int    `json:"build"`
	ReleaseDate string `json:"release_date"`
}

// SymbolInfo describes a tradable instrument.
type SymbolInfo struct {
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	Path           string          `json:"path"`
	CurrencyBase   string          `json:"currency_base"`
	CurrencyProfit string          `json:"currency_profit"`
	Digits         int             `json:"digits"`
	Point          decimal.Decimal `json:"point"`
	Bid            decimal.Decimal `json:"bid"`
	Ask            decimal.Decimal `json:"ask"`
	Last           decimal.Decimal `json:"last"`
	VolumeMin      decimal.Decimal `json:"volume_min"`
	VolumeMax      decimal.Decimal `json:"volume_max"`
	VolumeStep     decimal.Decimal `json:"volume_step"`
	Visible        bool            `json:"visible"`
	Time           time.Time       `json:"time"`
}

// Tick flag bits reported on each tick.
const (
	TickBid    = 2
	TickAsk    = 4
	TickLast   = 8
	TickVolume = 16
)

// Tick is a single price update.
type Tick struct {
	Time   time.Time       `json:"time"`
	Bid    decimal.Decimal `json:"bid"`
	Ask    decimal.Decimal `json:"ask"`
	Last   decimal.Decimal `json:"last"`
	Volume int64           `json:"volume"`
	Flags  int             `json:"flags"`
}

// Rate is one OHLC bar.
type Rate struct {
	Time       time.Time       `json:"time"`
	Open       decimal.Decimal `json:"open"`
	High       decimal.Decimal `json:"high"`
	Low        decimal.Decimal `json:"low"`
	Close      decimal.Decimal `json:"close"`
	TickVolume int64           `json:"tick_volume"`
	Spread     int             `json:"spread"`
	RealVolume int64           `json:"real_volume"`
}

type BookSide string

const (
	BookSell BookSide = "sell"
	BookBuy  BookSide = "buy"
)

// BookEntry is one level of the order book.
type BookEntry struct {
	Type   BookSide        `json:"type"`
	Price  decimal.Decimal `json:"price"`
	Volume decimal.Decimal `json:"volume"`
}
