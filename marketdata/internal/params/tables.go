package params

import (
	"sort"
	"strconv"
)

// Timeframe is the terminal's bar-period constant.
type Timeframe int

const (
	TimeframeM1  Timeframe = 1
	TimeframeM5  Timeframe = 5
	TimeframeM15 Timeframe = 15
	TimeframeM30 Timeframe = 30
	TimeframeH1  Timeframe = 1 | 0x4000
	TimeframeH4  Timeframe = 4 | 0x4000
	TimeframeD1  Timeframe = 24 | 0x4000
	TimeframeW1  Timeframe = 1 | 0x8000
	TimeframeMN1 Timeframe = 1 | 0xC000
)

// TickFlag selects which tick categories a tick query returns.
type TickFlag int

const (
	TickFlagAll   TickFlag = -1
	TickFlagInfo  TickFlag = 1
	TickFlagTrade TickFlag = 2
)

var timeframeTable = map[string]Timeframe{
	"M1":  TimeframeM1,
	"M5":  TimeframeM5,
	"M15": TimeframeM15,
	"M30": TimeframeM30,
	"H1":  TimeframeH1,
	"H4":  TimeframeH4,
	"D1":  TimeframeD1,
	"W1":  TimeframeW1,
	"MN1": TimeframeMN1,
}

var flagTable = map[string]TickFlag{
	"ALL":   TickFlagAll,
	"INFO":  TickFlagInfo,
	"TRADE": TickFlagTrade,
}

var (
	timeframeNames = invert(timeframeTable)
	flagNames      = invert(flagTable)
)

// invert builds the value-to-name table. It panics on a duplicate value so a
// table edit that breaks name resolution fails at init.
func invert[V comparable](table map[string]V) map[V]string {
	out := make(map[V]string, len(table))
	for name, v := range table {
		if prev, dup := out[v]; dup {
			panic("params: " + prev + " and " + name + " resolve to the same value")
		}
		out[v] = name
	}
	return out
}

func (t Timeframe) String() string {
	if name, ok := timeframeNames[t]; ok {
		return name
	}
	return "Timeframe(" + strconv.Itoa(int(t)) + ")"
}

func (f TickFlag) String() string {
	if name, ok := flagNames[f]; ok {
		return name
	}
	return "TickFlag(" + strconv.Itoa(int(f)) + ")"
}

// TimeframeNames returns the accepted timeframe names, sorted.
func TimeframeNames() []string { return sortedKeys(timeframeTable) }

// FlagNames returns the accepted tick flag names, sorted.
func FlagNames() []string { return sortedKeys(flagTable) }

// DateKeywords returns the accepted relative-date keywords, sorted.
func DateKeywords() []string { return sortedKeys(relativeDates) }

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
