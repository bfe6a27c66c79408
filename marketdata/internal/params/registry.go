package params

import (
	"fmt"
	"maps"
	"time"
)

// Defaults holds the value used for each key the client leaves out. Enum
// and date defaults are raw names and go through the same resolution as
// client input, so a relative keyword default tracks the current day.
type Defaults struct {
	Timeframe string
	DateFrom  string
	DateTo    string
	Flags     string
	StartPos  int
	Count     int
}

// StandardDefaults returns the stock defaults: a year of daily bars up to
// today, all tick categories, the first 1000 records.
func StandardDefaults() Defaults {
	return Defaults{
		Timeframe: "D1",
		DateFrom:  Trailing12M,
		DateTo:    Today,
		Flags:     "ALL",
		StartPos:  0,
		Count:     1000,
	}
}

// Registry is the read-only lookup configuration the Normalizer resolves
// against. It is built once and safe for concurrent use.
type Registry struct {
	timeframes map[string]Timeframe
	flags      map[string]TickFlag
	dates      map[string]func(time.Time) time.Time
	defaults   Defaults
}

// NewRegistry builds a Registry and checks that every default resolves.
func NewRegistry(defaults Defaults) (*Registry, error) {
	r := &Registry{
		timeframes: maps.Clone(timeframeTable),
		flags:      maps.Clone(flagTable),
		dates:      maps.Clone(relativeDates),
		defaults:   defaults,
	}

	today := startOfDay(time.Now())
	for _, key := range AllKeys {
		if err := r.resolveDefault(key, &Values{}, today); err != nil {
			return nil, fmt.Errorf("invalid default: %w", err)
		}
	}
	return r, nil
}

// Defaults returns a copy of the registered defaults.
func (r *Registry) Defaults() Defaults { return r.defaults }

func (r *Registry) resolveDefault(key Key, v *Values, today time.Time) error {
	switch key {
	case KeyTimeframe:
		return r.resolve(key, r.defaults.Timeframe, v, today)
	case KeyDateFrom:
		return r.resolve(key, r.defaults.DateFrom, v, today)
	case KeyDateTo:
		return r.resolve(key, r.defaults.DateTo, v, today)
	case KeyFlags:
		return r.resolve(key, r.defaults.Flags, v, today)
	case KeyStartPos:
		return setInt(key, r.defaults.StartPos, &v.StartPos)
	case KeyCount:
		return setInt(key, r.defaults.Count, &v.Count)
	default:
		return &FieldError{Field: key, Err: ErrUnknownParameter}
	}
}

// resolve converts one raw value into its concrete form and stores it in v.
func (r *Registry) resolve(key Key, raw string, v *Values, today time.Time) error {
	switch key {
	case KeyTimeframe:
		tf, ok := r.timeframes[raw]
		if !ok {
			return &FieldError{Field: key, Value: raw, Err: ErrUnknownTimeframe}
		}
		v.Timeframe = tf
	case KeyFlags:
		f, ok := r.flags[raw]
		if !ok {
			return &FieldError{Field: key, Value: raw, Err: ErrUnknownFlag}
		}
		v.Flags = f
	case KeyDateFrom, KeyDateTo:
		d, err := r.date(raw, today)
		if err != nil {
			return &FieldError{Field: key, Value: raw, Err: ErrInvalidDate}
		}
		if key == KeyDateFrom {
			v.DateFrom = d
		} else {
			v.DateTo = d
		}
	case KeyStartPos, KeyCount:
		n, err := parseCount(raw)
		if err != nil {
			return &FieldError{Field: key, Value: raw, Err: ErrInvalidInteger}
		}
		if key == KeyStartPos {
			v.StartPos = n
		} else {
			v.Count = n
		}
	default:
		return &FieldError{Field: key, Value: raw, Err: ErrUnknownParameter}
	}
	return nil
}

func (r *Registry) date(raw string, today time.Time) (time.Time, error) {
	if rel, ok := r.dates[raw]; ok {
		return rel(today), nil
	}
	return parseDate(raw)
}

func setInt(key Key, n int, dst *int) error {
	if n < 0 {
		return &FieldError{Field: key, Value: fmt.Sprint(n), Err: ErrInvalidInteger}
	}
	*dst = n
	return nil
}
