package provider

import (
	"context"
	"hash/fnv"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quoteline-systems/quoteline-stack/marketdata/internal/params"
)

// maxGenerated caps how many bars or ticks a single memory query produces.
const maxGenerated = 100_000

// tickInterval is the spacing of synthetic ticks.
const tickInterval = 15 * time.Second

// MemoryProvider serves deterministic synthetic data for a fixed symbol
// set. It backs local development and tests.
type MemoryProvider struct {
	mu      sync.RWMutex
	symbols map[string]SymbolInfo
	now     func() time.Time
}

// NewMemoryProvider creates a provider that knows the given tickers.
func NewMemoryProvider(now func() time.Time, tickers ...string) *MemoryProvider {
	if now == nil {
		now = time.Now
	}
	p := &MemoryProvider{symbols: make(map[string]SymbolInfo, len(tickers)), now: now}
	for _, t := range tickers {
		p.AddSymbol(t)
	}
	return p
}

// DefaultTickers is the symbol set the gateway loads for provider type memory.
var DefaultTickers = []string{"PETR4", "VALE3", "ITUB4", "BBDC4", "ABEV3", "WINFUT", "WDOFUT"}

// AddSymbol registers a ticker, deriving its prices from the name.
func (p *MemoryProvider) AddSymbol(ticker string) {
	ticker = strings.ToUpper(ticker)
	base := basePrice(ticker)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.symbols[ticker] = SymbolInfo{
		Name:           ticker,
		Description:    ticker + " synthetic instrument",
		Path:           "BOVESPA\\" + ticker,
		CurrencyBase:   "BRL",
		CurrencyProfit: "BRL",
		Digits:         2,
		Point:          decimal.New(1, -2),
		Bid:            base,
		Ask:            base.Add(decimal.New(1, -2)),
		Last:           base,
		VolumeMin:      decimal.NewFromInt(100),
		VolumeMax:      decimal.NewFromInt(1_000_000),
		VolumeStep:     decimal.NewFromInt(100),
		Visible:        true,
	}
}

func (p *MemoryProvider) Name() string { return "memory" }

func (p *MemoryProvider) Version(context.Context) (*TerminalVersion, error) {
	return &TerminalVersion{Version: "500", Build: 4000, ReleaseDate: "01 Jan 2024"}, nil
}

// Symbols returns the symbols matching group. A group is a comma separated
// list of glob patterns; a leading '!' excludes matches.
func (p *MemoryProvider) Symbols(_ context.Context, group string) ([]SymbolInfo, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]SymbolInfo, 0, len(p.symbols))
	for name, info := range p.symbols {
		if matchGroup(group, name) {
			info.Time = p.now().UTC()
			out = append(out, info)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (p *MemoryProvider) SymbolsTotal(context.Context) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.symbols), nil
}

func (p *MemoryProvider) SymbolInfo(_ context.Context, symbol string) (*SymbolInfo, error) {
	info, ok := p.lookup(symbol)
	if !ok {
		return nil, ErrNoData
	}
	info.Time = p.now().UTC()
	return &info, nil
}

func (p *MemoryProvider) SymbolTick(_ context.Context, symbol string) (*Tick, error) {
	if _, ok := p.lookup(symbol); !ok {
		return nil, ErrNoData
	}
	tick := p.tick(symbol, p.now().UTC().Truncate(time.Second), TickBid|TickAsk|TickLast)
	return &tick, nil
}

func (p *MemoryProvider) Book(_ context.Context, symbol string) ([]BookEntry, error) {
	info, ok := p.lookup(symbol)
	if !ok {
		return nil, ErrNoData
	}

	const depth = 5
	entries := make([]BookEntry, 0, 2*depth)
	for i := depth; i >= 1; i-- {
		entries = append(entries, BookEntry{
			Type:   BookSell,
			Price:  info.Ask.Add(info.Point.Mul(decimal.NewFromInt(int64(i - 1)))),
			Volume: decimal.NewFromInt(int64(100 * i)),
		})
	}
	for i := 1; i <= depth; i++ {
		entries = append(entries, BookEntry{
			Type:   BookBuy,
			Price:  info.Bid.Sub(info.Point.Mul(decimal.NewFromInt(int64(i - 1)))),
			Volume: decimal.NewFromInt(int64(100 * i)),
		})
	}
	return entries, nil
}

func (p *MemoryProvider) RatesRange(_ context.Context, symbol string, tf params.Timeframe, from, to time.Time) ([]Rate, error) {
	if _, ok := p.lookup(symbol); !ok {
		return nil, ErrNoData
	}
	step := stepper(tf)
	out := []Rate{}
	for t := barStart(from.UTC(), tf); !t.After(to) && len(out) < maxGenerated; t = step(t, 1) {
		if t.Before(from) {
			continue
		}
		out = append(out, p.bar(symbol, t))
	}
	return out, nil
}

// RatesFrom returns count bars ending at the bar that contains from.
func (p *MemoryProvider) RatesFrom(_ context.Context, symbol string, tf params.Timeframe, from time.Time, count int) ([]Rate, error) {
	if _, ok := p.lookup(symbol); !ok {
		return nil, ErrNoData
	}
	return p.barsBackFrom(symbol, tf, barStart(from.UTC(), tf), count), nil
}

// RatesFromPos returns count bars, startPos bars back from the current one.
func (p *MemoryProvider) RatesFromPos(_ context.Context, symbol string, tf params.Timeframe, startPos, count int) ([]Rate, error) {
	if _, ok := p.lookup(symbol); !ok {
		return nil, ErrNoData
	}
	current := barStart(p.now().UTC(), tf)
	return p.barsBackFrom(symbol, tf, stepper(tf)(current, -startPos), count), nil
}

func (p *MemoryProvider) TicksRange(_ context.Context, symbol string, from, to time.Time, flags params.TickFlag) ([]Tick, error) {
	if _, ok := p.lookup(symbol); !ok {
		return nil, ErrNoData
	}
	out := []Tick{}
	for t := from.UTC().Truncate(tickInterval); !t.After(to) && len(out) < maxGenerated; t = t.Add(tickInterval) {
		if t.Before(from) {
			continue
		}
		if tick, ok := p.tickAt(symbol, t, flags); ok {
			out = append(out, tick)
		}
	}
	return out, nil
}

func (p *MemoryProvider) TicksFrom(_ context.Context, symbol string, from time.Time, count int, flags params.TickFlag) ([]Tick, error) {
	if _, ok := p.lookup(symbol); !ok {
		return nil, ErrNoData
	}
	out := make([]Tick, 0, min(count, maxGenerated))
	t := from.UTC().Truncate(tickInterval)
	if t.Before(from) {
		t = t.Add(tickInterval)
	}
	for ; len(out) < count && len(out) < maxGenerated; t = t.Add(tickInterval) {
		if tick, ok := p.tickAt(symbol, t, flags); ok {
			out = append(out, tick)
		}
	}
	return out, nil
}

func (p *MemoryProvider) lookup(symbol string) (SymbolInfo, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	info, ok := p.symbols[strings.ToUpper(symbol)]
	return info, ok
}

func (p *MemoryProvider) barsBackFrom(symbol string, tf params.Timeframe, last time.Time, count int) []Rate {
	count = min(count, maxGenerated)
	step := stepper(tf)
	out := make([]Rate, count)
	for i := 0; i < count; i++ {
		out[i] = p.bar(symbol, step(last, i-count+1))
	}
	return out
}

// bar derives an OHLC bar from the symbol and bar time, so the same request
// always yields the same data.
func (p *MemoryProvider) bar(symbol string, t time.Time) Rate {
	open := price(symbol, t.Unix())
	closing := price(symbol, t.Unix()+1)
	spread := decimal.New(int64(noise(symbol, t.Unix(), 50)), -2)
	return Rate{
		Time:       t,
		Open:       open,
		High:       decimal.Max(open, closing).Add(spread),
		Low:        decimal.Min(open, closing).Sub(spread),
		Close:      closing,
		TickVolume: int64(100 + noise(symbol, t.Unix(), 900)),
		Spread:     1,
		RealVolume: int64(1000 * (1 + noise(symbol, t.Unix()+2, 99))),
	}
}

// tickAt alternates quote and trade ticks and applies the flag filter.
func (p *MemoryProvider) tickAt(symbol string, t time.Time, flags params.TickFlag) (Tick, bool) {
	trade := (t.Unix()/int64(tickInterval/time.Second))%2 == 1
	switch {
	case flags == params.TickFlagInfo && trade:
		return Tick{}, false
	case flags == params.TickFlagTrade && !trade:
		return Tick{}, false
	}
	if trade {
		return p.tick(symbol, t, TickLast|TickVolume), true
	}
	return p.tick(symbol, t, TickBid|TickAsk), true
}

func (p *MemoryProvider) tick(symbol string, t time.Time, flags int) Tick {
	bid := price(symbol, t.Unix())
	tick := Tick{
		Time:  t,
		Bid:   bid,
		Ask:   bid.Add(decimal.New(1, -2)),
		Last:  bid,
		Flags: flags,
	}
	if flags&TickVolume != 0 {
		tick.Volume = int64(100 * (1 + noise(symbol, t.Unix(), 10)))
	}
	return tick
}

// stepper returns a function that moves a bar time by n bars.
func stepper(tf params.Timeframe) func(time.Time, int) time.Time {
	switch tf {
	case params.TimeframeMN1:
		return func(t time.Time, n int) time.Time { return t.AddDate(0, n, 0) }
	case params.TimeframeW1:
		return func(t time.Time, n int) time.Time { return t.AddDate(0, 0, 7*n) }
	case params.TimeframeD1:
		return func(t time.Time, n int) time.Time { return t.AddDate(0, 0, n) }
	}
	d := barDuration(tf)
	return func(t time.Time, n int) time.Time { return t.Add(time.Duration(n) * d) }
}

func barDuration(tf params.Timeframe) time.Duration {
	switch tf {
	case params.TimeframeM1, params.TimeframeM5, params.TimeframeM15, params.TimeframeM30:
		return time.Duration(tf) * time.Minute
	case params.TimeframeH1:
		return time.Hour
	case params.TimeframeH4:
		return 4 * time.Hour
	}
	return 24 * time.Hour
}

// barStart aligns t to the opening of the bar containing it. Weeks open on
// Sunday as they do in the terminal.
func barStart(t time.Time, tf params.Timeframe) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	switch tf {
	case params.TimeframeMN1:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	case params.TimeframeW1:
		return day.AddDate(0, 0, -int(day.Weekday()))
	case params.TimeframeD1:
		return day
	}
	return t.Truncate(barDuration(tf))
}

func basePrice(symbol string) decimal.Decimal {
	return decimal.New(int64(1000+noise(symbol, 0, 9000)), -2)
}

func price(symbol string, at int64) decimal.Decimal {
	drift := decimal.New(int64(noise(symbol, at, 200))-100, -2)
	return basePrice(symbol).Add(drift)
}

func noise(symbol string, at int64, n uint32) uint32 {
	h := fnv.New32a()
	h.Write([]byte(symbol))
	h.Write([]byte(strconv.FormatInt(at, 10)))
	return h.Sum32() % n
}

func matchGroup(group, name string) bool {
	if group == "" {
		return true
	}
	matched := false
	for _, pattern := range strings.Split(strings.ToUpper(group), ",") {
		pattern = strings.TrimSpace(pattern)
		exclude := strings.HasPrefix(pattern, "!")
		pattern = strings.TrimPrefix(pattern, "!")
		if ok, _ := path.Match(pattern, name); !ok {
			continue
		}
		if exclude {
			return false
		}
		matched = true
	}
	return matched
}
