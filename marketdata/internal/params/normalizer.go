package params

import (
	"slices"
	"strconv"
	"time"
)

// Values is a normalized parameter set. Only the fields named by Keys are
// meaningful; every one of them holds either the client's resolved value or
// the registered default.
type Values struct {
	keys []Key

	Timeframe Timeframe
	DateFrom  time.Time
	DateTo    time.Time
	StartPos  int
	Count     int
	Flags     TickFlag
}

// Keys returns the keys this set was normalized over, in request order.
func (v *Values) Keys() []Key { return slices.Clone(v.keys) }

// Has reports whether k was part of the normalized key set.
func (v *Values) Has(k Key) bool { return slices.Contains(v.keys, k) }

// Encode renders the resolved values back into raw form. Normalizing the
// result over the same keys yields an equal Values.
func (v *Values) Encode() Raw {
	raw := make(Raw, len(v.keys))
	for _, k := range v.keys {
		switch k {
		case KeyTimeframe:
			raw[k] = v.Timeframe.String()
		case KeyDateFrom:
			raw[k] = v.DateFrom.Format(canonicalDateLayout)
		case KeyDateTo:
			raw[k] = v.DateTo.Format(canonicalDateLayout)
		case KeyStartPos:
			raw[k] = strconv.Itoa(v.StartPos)
		case KeyCount:
			raw[k] = strconv.Itoa(v.Count)
		case KeyFlags:
			raw[k] = v.Flags.String()
		}
	}
	return raw
}

// Normalizer resolves raw parameters against a Registry. Relative-date
// keywords are evaluated against the clock on every call.
type Normalizer struct {
	registry *Registry
	now      func() time.Time
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithClock overrides the time source used for relative dates.
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) { n.now = now }
}

func NewNormalizer(registry *Registry, opts ...Option) *Normalizer {
	n := &Normalizer{registry: registry, now: time.Now}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize resolves raw over the given keys. Supplied values are looked up
// or parsed; absent keys and empty values take their default. A raw key outside keys is an
// error. The first failing key, in keys order, is reported as a
// *FieldError.
func (n *Normalizer) Normalize(raw Raw, keys ...Key) (*Values, error) {
	for k, value := range raw {
		if !slices.Contains(keys, k) {
			return nil, &FieldError{Field: k, Value: value, Err: ErrUnknownParameter}
		}
	}

	today := startOfDay(n.now())
	v := &Values{keys: make([]Key, 0, len(keys))}
	for _, k := range keys {
		if !k.valid() {
			return nil, &FieldError{Field: k, Err: ErrUnknownParameter}
		}
		if v.Has(k) {
			continue
		}
		v.keys = append(v.keys, k)

		value := raw[k]
		var err error
		if value != "" {
			err = n.registry.resolve(k, value, v, today)
		} else {
			err = n.registry.resolveDefault(k, v, today)
		}
		if err != nil {
			return nil, err
		}
	}
	return v, nil
}

// parseCount accepts a non-negative base-10 integer.
func parseCount(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, strconv.ErrRange
	}
	return n, nil
}
