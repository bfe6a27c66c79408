// Package params turns raw query parameters of market-data requests into a
// validated, fully defaulted set of values ready for the provider.
package params

import (
	"fmt"
	"net/url"
)

// Key names a recognized query parameter.
type Key string

const (
	KeyTimeframe Key = "timeframe"
	KeyDateFrom  Key = "date_from"
	KeyDateTo    Key = "date_to"
	KeyStartPos  Key = "start_pos"
	KeyCount     Key = "count"
	KeyFlags     Key = "flags"
)

// AllKeys lists every recognized key in canonical order.
var AllKeys = []Key{KeyTimeframe, KeyDateFrom, KeyDateTo, KeyStartPos, KeyCount, KeyFlags}

// Key sets consumed by each endpoint family.
var (
	RatesRangeKeys   = []Key{KeyTimeframe, KeyDateFrom, KeyDateTo}
	RatesFromKeys    = []Key{KeyTimeframe, KeyDateFrom, KeyCount}
	RatesFromPosKeys = []Key{KeyTimeframe, KeyStartPos, KeyCount}
	TicksRangeKeys   = []Key{KeyDateFrom, KeyDateTo, KeyFlags}
	TicksFromKeys    = []Key{KeyDateFrom, KeyCount, KeyFlags}
)

func (k Key) valid() bool {
	for _, known := range AllKeys {
		if k == known {
			return true
		}
	}
	return false
}

// Raw maps a key to the value the client sent. A key that is absent from
// the map, or maps to an empty string, takes its default.
type Raw map[Key]string

// FromQuery extracts the accepted keys from a URL query. Any other key, or a
// key given more than once, is rejected.
func FromQuery(q url.Values, accepted ...Key) (Raw, error) {
	raw := make(Raw, len(q))
	for name, values := range q {
		key := Key(name)
		if !contains(accepted, key) {
			return nil, &FieldError{Field: key, Err: ErrUnknownParameter}
		}
		if len(values) != 1 {
			return nil, &FieldError{Field: key, Value: fmt.Sprint(values), Err: ErrRepeatedParameter}
		}
		raw[key] = values[0]
	}
	return raw, nil
}

func contains(keys []Key, k Key) bool {
	for _, candidate := range keys {
		if candidate == k {
			return true
		}
	}
	return false
}
