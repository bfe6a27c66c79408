package cmd

import (
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/quoteline-systems/quoteline-stack/cli/internal/client"
	"github.com/quoteline-systems/quoteline-stack/cli/pkg/output"
)

const timeLayout = "2006-01-02 15:04:05"

var terminalCmd = &cobra.Command{
	Use:   "terminal",
	Short: "Show the market data terminal version",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := session(cmd)
		if err != nil {
			return err
		}
		v, err := c.Terminal(cmd.Context())
		if err != nil {
			return describe(err)
		}
		if jsonOutput(cmd) {
			return output.JSON(v)
		}
		output.Info("Version:  %s", v.Version)
		output.Info("Build:    %d", v.Build)
		output.Info("Released: %s", v.ReleaseDate)
		return nil
	},
}

var symbolsCmd = &cobra.Command{
	Use:   "symbols",
	Short: "List tradable symbols",
	Long: `List tradable symbols, optionally filtered by a group pattern.

A group is a comma-separated list of globs; a leading ! excludes matches:

  qline symbols --group '*USD*,!EUR*'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := session(cmd)
		if err != nil {
			return err
		}
		group, _ := cmd.Flags().GetString("group")
		list, err := c.Symbols(cmd.Context(), group)
		if err != nil {
			return describe(err)
		}
		if jsonOutput(cmd) {
			return output.JSON(list)
		}

		tbl := output.NewTable("SYMBOL", "DESCRIPTION", "DIGITS", "BID", "ASK")
		for _, s := range list {
			tbl.AddRow(s.Name, s.Description, strconv.Itoa(s.Digits), s.Bid.String(), s.Ask.String())
		}
		tbl.Render()
		return nil
	},
}

var symbolsTotalCmd = &cobra.Command{
	Use:   "total",
	Short: "Count tradable symbols",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := session(cmd)
		if err != nil {
			return err
		}
		total, err := c.SymbolsTotal(cmd.Context())
		if err != nil {
			return describe(err)
		}
		if jsonOutput(cmd) {
			return output.JSON(map[string]int{"total": total})
		}
		output.Info("%d", total)
		return nil
	},
}

var symbolCmd = &cobra.Command{
	Use:   "symbol",
	Short: "Symbol details and last quote",
}

var symbolInfoCmd = &cobra.Command{
	Use:   "info SYMBOL...",
	Short: "Show symbol details",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := session(cmd)
		if err != nil {
			return err
		}
		res, err := c.SymbolInfo(cmd.Context(), args)
		if err != nil {
			return describe(err)
		}
		if jsonOutput(cmd) {
			return output.JSON(res)
		}

		tbl := output.NewTable("SYMBOL", "DIGITS", "BID", "ASK", "LAST", "TIME")
		for _, sym := range tickerOrder(args) {
			s := res[sym]
			if s == nil {
				tbl.AddRow(sym, "no data")
				continue
			}
			tbl.AddRow(sym, strconv.Itoa(s.Digits), s.Bid.String(), s.Ask.String(), s.Last.String(), formatTime(s.Time))
		}
		tbl.Render()
		return nil
	},
}

var symbolTickCmd = &cobra.Command{
	Use:   "tick SYMBOL...",
	Short: "Show the last tick",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := session(cmd)
		if err != nil {
			return err
		}
		res, err := c.SymbolTick(cmd.Context(), args)
		if err != nil {
			return describe(err)
		}
		if jsonOutput(cmd) {
			return output.JSON(res)
		}

		tbl := tickTable()
		for _, sym := range tickerOrder(args) {
			if t := res[sym]; t != nil {
				addTick(tbl, sym, *t)
			} else {
				tbl.AddRow(sym, "no data")
			}
		}
		tbl.Render()
		return nil
	},
}

var bookCmd = &cobra.Command{
	Use:   "book SYMBOL...",
	Short: "Show market depth",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := session(cmd)
		if err != nil {
			return err
		}
		res, err := c.Book(cmd.Context(), args)
		if err != nil {
			return describe(err)
		}
		if jsonOutput(cmd) {
			return output.JSON(res)
		}

		tbl := output.NewTable("SYMBOL", "TYPE", "PRICE", "VOLUME")
		for _, sym := range tickerOrder(args) {
			entries := res[sym]
			if entries == nil {
				tbl.AddRow(sym, "no data")
				continue
			}
			for _, e := range *entries {
				tbl.AddRow(sym, e.Type, e.Price.String(), e.Volume.String())
			}
		}
		tbl.Render()
		return nil
	},
}

var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "Query bars",
}

var ticksCmd = &cobra.Command{
	Use:   "ticks",
	Short: "Query ticks",
}

type ratesFunc func(c *client.Client, cmd *cobra.Command, tickers []string, p client.Params) (client.BySymbol[[]client.Rate], error)

type ticksFunc func(c *client.Client, cmd *cobra.Command, tickers []string, p client.Params) (client.BySymbol[[]client.Tick], error)

func ratesQuery(use, short string, fetch ratesFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " SYMBOL...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := session(cmd)
			if err != nil {
				return err
			}
			res, err := fetch(c, cmd, args, queryParams(cmd))
			if err != nil {
				return describe(err)
			}
			if jsonOutput(cmd) {
				return output.JSON(res)
			}

			tbl := output.NewTable("SYMBOL", "TIME", "OPEN", "HIGH", "LOW", "CLOSE", "TICK_VOLUME", "SPREAD")
			for _, sym := range tickerOrder(args) {
				bars := res[sym]
				if bars == nil {
					tbl.AddRow(sym, "no data")
					continue
				}
				for _, b := range *bars {
					tbl.AddRow(sym, formatTime(b.Time), b.Open.String(), b.High.String(), b.Low.String(), b.Close.String(),
						strconv.FormatInt(b.TickVolume, 10), strconv.Itoa(b.Spread))
				}
			}
			tbl.Render()
			return nil
		},
	}
}

func ticksQuery(use, short string, fetch ticksFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " SYMBOL...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := session(cmd)
			if err != nil {
				return err
			}
			res, err := fetch(c, cmd, args, queryParams(cmd))
			if err != nil {
				return describe(err)
			}
			if jsonOutput(cmd) {
				return output.JSON(res)
			}

			tbl := tickTable()
			for _, sym := range tickerOrder(args) {
				ticks := res[sym]
				if ticks == nil {
					tbl.AddRow(sym, "no data")
					continue
				}
				for _, t := range *ticks {
					addTick(tbl, sym, t)
				}
			}
			tbl.Render()
			return nil
		},
	}
}

// queryParams copies only the flags the user set so the gateway applies
// its own defaults for the rest.
func queryParams(cmd *cobra.Command) client.Params {
	var p client.Params
	str := func(name string, dst *string) {
		if cmd.Flags().Changed(name) {
			*dst, _ = cmd.Flags().GetString(name)
		}
	}
	num := func(name string, dst **int) {
		if cmd.Flags().Changed(name) {
			v, _ := cmd.Flags().GetInt(name)
			*dst = &v
		}
	}
	str("timeframe", &p.Timeframe)
	str("from", &p.DateFrom)
	str("to", &p.DateTo)
	str("flags", &p.Flags)
	num("start", &p.StartPos)
	num("count", &p.Count)
	return p
}

// tickerOrder upper-cases and de-duplicates args the way the gateway keys
// its response.
func tickerOrder(args []string) []string {
	seen := make(map[string]bool, len(args))
	out := make([]string, 0, len(args))
	for _, a := range args {
		sym := strings.ToUpper(strings.TrimSpace(a))
		if !seen[sym] {
			seen[sym] = true
			out = append(out, sym)
		}
	}
	return out
}

func tickTable() *output.Table {
	return output.NewTable("SYMBOL", "TIME", "BID", "ASK", "LAST", "VOLUME", "FLAGS")
}

func addTick(tbl *output.Table, sym string, t client.Tick) {
	tbl.AddRow(sym, formatTime(t.Time), t.Bid.String(), t.Ask.String(), t.Last.String(),
		strconv.FormatInt(t.Volume, 10), strconv.Itoa(t.Flags))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func init() {
	rootCmd.AddCommand(terminalCmd, symbolsCmd, symbolCmd, bookCmd, ratesCmd, ticksCmd)
	symbolsCmd.AddCommand(symbolsTotalCmd)
	symbolCmd.AddCommand(symbolInfoCmd, symbolTickCmd)

	symbolsCmd.Flags().String("group", "", "group filter, e.g. '*USD*,!EUR*'")

	ratesRange := ratesQuery("range", "Bars between two dates",
		func(c *client.Client, cmd *cobra.Command, t []string, p client.Params) (client.BySymbol[[]client.Rate], error) {
			return c.RatesRange(cmd.Context(), t, p)
		})
	ratesFrom := ratesQuery("from", "Bars ending at a date",
		func(c *client.Client, cmd *cobra.Command, t []string, p client.Params) (client.BySymbol[[]client.Rate], error) {
			return c.RatesFrom(cmd.Context(), t, p)
		})
	ratesPos := ratesQuery("pos", "Bars counted back from the current bar",
		func(c *client.Client, cmd *cobra.Command, t []string, p client.Params) (client.BySymbol[[]client.Rate], error) {
			return c.RatesFromPos(cmd.Context(), t, p)
		})
	ticksRange := ticksQuery("range", "Ticks between two dates",
		func(c *client.Client, cmd *cobra.Command, t []string, p client.Params) (client.BySymbol[[]client.Tick], error) {
			return c.TicksRange(cmd.Context(), t, p)
		})
	ticksFrom := ticksQuery("from", "Ticks starting at a date",
		func(c *client.Client, cmd *cobra.Command, t []string, p client.Params) (client.BySymbol[[]client.Tick], error) {
			return c.TicksFrom(cmd.Context(), t, p)
		})
	ratesCmd.AddCommand(ratesRange, ratesFrom, ratesPos)
	ticksCmd.AddCommand(ticksRange, ticksFrom)

	for _, c := range []*cobra.Command{ratesRange, ratesFrom, ratesPos} {
		c.Flags().String("timeframe", "", "bar timeframe, e.g. M1, H4, D1")
	}
	for _, c := range []*cobra.Command{ratesRange, ticksRange} {
		c.Flags().String("from", "", "start date (YYYY-M-D)")
		c.Flags().String("to", "", "end date (YYYY-M-D)")
	}
	for _, c := range []*cobra.Command{ratesFrom, ticksFrom} {
		c.Flags().String("from", "", "anchor date (YYYY-M-D)")
		c.Flags().Int("count", 0, "number of records")
	}
	ratesPos.Flags().Int("start", 0, "bars back from the current bar")
	ratesPos.Flags().Int("count", 0, "number of bars")
	for _, c := range []*cobra.Command{ticksRange, ticksFrom} {
		c.Flags().String("flags", "", "tick flags: ALL, INFO or TRADE")
	}
}
