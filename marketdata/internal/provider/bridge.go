package provider

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/quoteline-systems/quoteline-stack/marketdata/internal/params"
)

// BridgeConfig configures the HTTP bridge to the terminal.
type BridgeConfig struct {
	URL     string
	APIKey  string
	Timeout time.Duration
	Retries int
}

// BridgeProvider talks to the terminal through its HTTP bridge process.
type BridgeProvider struct {
	client *resty.Client
}

func NewBridgeProvider(cfg BridgeConfig) *BridgeProvider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	client := resty.New()
	client.SetBaseURL(cfg.URL)
	client.SetTimeout(cfg.Timeout)
	client.SetRetryCount(cfg.Retries)
	client.SetRetryWaitTime(200 * time.Millisecond)
	client.SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		client.SetHeader("X-API-Key", cfg.APIKey)
	}
	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		return err != nil || r.StatusCode() >= http.StatusInternalServerError
	})

	return &BridgeProvider{client: client}
}

func (b *BridgeProvider) Name() string { return "bridge" }

func (b *BridgeProvider) Version(ctx context.Context) (*TerminalVersion, error) {
	var v TerminalVersion
	if err := b.get(ctx, "/version", nil, nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (b *BridgeProvider) Symbols(ctx context.Context, group string) ([]SymbolInfo, error) {
	var query map[string]string
	if group != "" {
		query = map[string]string{"group": group}
	}
	var out []SymbolInfo
	if err := b.get(ctx, "/symbols", nil, query, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *BridgeProvider) SymbolsTotal(ctx context.Context) (int, error) {
	var out struct {
		Total int `json:"total"`
	}
	if err := b.get(ctx, "/symbols/total", nil, nil, &out); err != nil {
		return 0, err
	}
	return out.Total, nil
}

func (b *BridgeProvider) SymbolInfo(ctx context.Context, symbol string) (*SymbolInfo, error) {
	var out SymbolInfo
	if err := b.get(ctx, "/symbols/{symbol}", symbolPath(symbol), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (b *BridgeProvider) SymbolTick(ctx context.Context, symbol string) (*Tick, error) {
	var out Tick
	if err := b.get(ctx, "/symbols/{symbol}/tick", symbolPath(symbol), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (b *BridgeProvider) Book(ctx context.Context, symbol string) ([]BookEntry, error) {
	var out []BookEntry
	if err := b.get(ctx, "/symbols/{symbol}/book", symbolPath(symbol), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *BridgeProvider) RatesRange(ctx context.Context, symbol string, tf params.Timeframe, from, to time.Time) ([]Rate, error) {
	var out []Rate
	err := b.get(ctx, "/rates/range", nil, map[string]string{
		"symbol":    symbol,
		"timeframe": strconv.Itoa(int(tf)),
		"date_from": unix(from),
		"date_to":   unix(to),
	}, &out)
	return out, err
}

func (b *BridgeProvider) RatesFrom(ctx context.Context, symbol string, tf params.Timeframe, from time.Time, count int) ([]Rate, error) {
	var out []Rate
	err := b.get(ctx, "/rates/from", nil, map[string]string{
		"symbol":    symbol,
		"timeframe": strconv.Itoa(int(tf)),
		"date_from": unix(from),
		"count":     strconv.Itoa(count),
	}, &out)
	return out, err
}

func (b *BridgeProvider) RatesFromPos(ctx context.Context, symbol string, tf params.Timeframe, startPos, count int) ([]Rate, error) {
	var out []Rate
	err := b.get(ctx, "/rates/from_pos", nil, map[string]string{
		"symbol":    symbol,
		"timeframe": strconv.Itoa(int(tf)),
		"start_pos": strconv.Itoa(startPos),
		"count":     strconv.Itoa(count),
	}, &out)
	return out, err
}

func (b *BridgeProvider) TicksRange(ctx context.Context, symbol string, from, to time.Time, flags params.TickFlag) ([]Tick, error) {
	var out []Tick
	err := b.get(ctx, "/ticks/range", nil, map[string]string{
		"symbol":    symbol,
		"date_from": unix(from),
		"date_to":   unix(to),
		"flags":     strconv.Itoa(int(flags)),
	}, &out)
	return out, err
}

func (b *BridgeProvider) TicksFrom(ctx context.Context, symbol string, from time.Time, count int, flags params.TickFlag) ([]Tick, error) {
	var out []Tick
	err := b.get(ctx, "/ticks/from", nil, map[string]string{
		"symbol":    symbol,
		"date_from": unix(from),
		"count":     strconv.Itoa(count),
		"flags":     strconv.Itoa(int(flags)),
	}, &out)
	return out, err
}

// get performs a GET and decodes a JSON body into out. A 404 from the bridge
// means the terminal returned nothing for the request.
func (b *BridgeProvider) get(ctx context.Context, path string, pathParams, query map[string]string, out any) error {
	req := b.client.R().SetContext(ctx).SetResult(out)
	if pathParams != nil {
		req.SetPathParams(pathParams)
	}
	if query != nil {
		req.SetQueryParams(query)
	}

	resp, err := req.Get(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, path, err)
	}
	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return ErrNoData
	case resp.IsError():
		return fmt.Errorf("%w: %s returned %d", ErrUnavailable, path, resp.StatusCode())
	}
	return nil
}

func symbolPath(symbol string) map[string]string {
	return map[string]string{"symbol": symbol}
}

func unix(t time.Time) string {
	return strconv.FormatInt(t.Unix(), 10)
}
