package client

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quoteline-systems/quoteline-stack/marketdata/pkg/symbols"
)

type SymbolInfo struct {
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	Path           string          `json:"path"`
	CurrencyBase   string          `json:"currency_base"`
	CurrencyProfit string          `json:"currency_profit"`
	Digits         int             `json:"digits"`
	Bid            decimal.Decimal `json:"bid"`
	Ask            decimal.Decimal `json:"ask"`
	Last           decimal.Decimal `json:"last"`
	Time           time.Time       `json:"time"`
}

type Tick struct {
	Time   time.Time       `json:"time"`
	Bid    decimal.Decimal `json:"bid"`
	Ask    decimal.Decimal `json:"ask"`
	Last   decimal.Decimal `json:"last"`
	Volume int64           `json:"volume"`
	Flags  int             `json:"flags"`
}

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

type BookEntry struct {
	Type   string          `json:"type"`
	Price  decimal.Decimal `json:"price"`
	Volume decimal.Decimal `json:"volume"`
}

type TerminalVersion struct {
	Version     string `json:"version"`
	Build       int    `json:"build"`
	ReleaseDate string `json:"release_date"`
}

// BySymbol is a per-symbol response. A nil value means the gateway had no
// data for that symbol.
type BySymbol[T any] map[string]*T

// Params are the optional market-data query parameters. Zero values are
// omitted so the gateway applies its defaults.
type Params struct {
	Timeframe string
	DateFrom  string
	DateTo    string
	Flags     string
	StartPos  *int
	Count     *int
}

func (p Params) query() map[string]string {
	q := map[string]string{}
	set := func(k, v string) {
		if v != "" {
			q[k] = v
		}
	}
	set("timeframe", p.Timeframe)
	set("date_from", p.DateFrom)
	set("date_to", p.DateTo)
	set("flags", p.Flags)
	if p.StartPos != nil {
		q["start_pos"] = strconv.Itoa(*p.StartPos)
	}
	if p.Count != nil {
		q["count"] = strconv.Itoa(*p.Count)
	}
	return q
}

func (c *Client) Terminal(ctx context.Context) (*TerminalVersion, error) {
	var out TerminalVersion
	if err := c.get(ctx, "/api/v1/terminal", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Symbols(ctx context.Context, group string) ([]SymbolInfo, error) {
	var query map[string]string
	if group != "" {
		query = map[string]string{"group": group}
	}
	var out []SymbolInfo
	if err := c.get(ctx, "/api/v1/symbols", query, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SymbolsTotal(ctx context.Context) (int, error) {
	var out struct {
		Total int `json:"total"`
	}
	if err := c.get(ctx, "/api/v1/symbols/total", nil, &out); err != nil {
		return 0, err
	}
	return out.Total, nil
}

func (c *Client) SymbolInfo(ctx context.Context, tickers []string) (BySymbol[SymbolInfo], error) {
	return bySymbol[SymbolInfo](ctx, c, "/api/v1/symbol/info/", tickers, Params{})
}

func (c *Client) SymbolTick(ctx context.Context, tickers []string) (BySymbol[Tick], error) {
	return bySymbol[Tick](ctx, c, "/api/v1/symbol/info/tick/", tickers, Params{})
}

func (c *Client) Book(ctx context.Context, tickers []string) (BySymbol[[]BookEntry], error) {
	return bySymbol[[]BookEntry](ctx, c, "/api/v1/book/", tickers, Params{})
}

func (c *Client) RatesRange(ctx context.Context, tickers []string, p Params) (BySymbol[[]Rate], error) {
	return bySymbol[[]Rate](ctx, c, "/api/v1/rates/range/", tickers, p)
}

func (c *Client) RatesFrom(ctx context.Context, tickers []string, p Params) (BySymbol[[]Rate], error) {
	return bySymbol[[]Rate](ctx, c, "/api/v1/rates/from/", tickers, p)
}

func (c *Client) RatesFromPos(ctx context.Context, tickers []string, p Params) (BySymbol[[]Rate], error) {
	return bySymbol[[]Rate](ctx, c, "/api/v1/rates/from/pos/", tickers, p)
}

func (c *Client) TicksRange(ctx context.Context, tickers []string, p Params) (BySymbol[[]Tick], error) {
	return bySymbol[[]Tick](ctx, c, "/api/v1/ticks/range/", tickers, p)
}

func (c *Client) TicksFrom(ctx context.Context, tickers []string, p Params) (BySymbol[[]Tick], error) {
	return bySymbol[[]Tick](ctx, c, "/api/v1/ticks/from/", tickers, p)
}

// bySymbol requests prefix followed by the ticker segment. Several tickers
// are sent as one bracketed list.
func bySymbol[T any](ctx context.Context, c *Client, prefix string, tickers []string, p Params) (BySymbol[T], error) {
	var raw map[string]json.RawMessage
	path := prefix + url.PathEscape(symbols.Format(tickers))
	if err := c.get(ctx, path, p.query(), &raw); err != nil {
		return nil, err
	}

	out := make(BySymbol[T], len(raw))
	for sym, data := range raw {
		var v *T
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		out[sym] = v
	}
	return out, nil
}
