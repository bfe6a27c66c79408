package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/quoteline-systems/quoteline-stack/cli/internal/client"
	"github.com/quoteline-systems/quoteline-stack/cli/internal/config"
	"github.com/quoteline-systems/quoteline-stack/cli/pkg/output"
)

var (
	cfgFile string
	cfg     *config.Config

	// now is swapped in tests.
	now = time.Now
)

var rootCmd = &cobra.Command{
	Use:   "qline",
	Short: "Quoteline market data CLI",
	Long: `qline is the command-line client for the Quoteline market data gateway.

Log in once, then query symbols, quotes, order books, bars and ticks
from your terminal.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		output.Error("%v", err)
	}
	return err
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.qline/config.yaml)")
	rootCmd.PersistentFlags().String("profile", "default", "profile to use")
	rootCmd.PersistentFlags().StringP("output", "o", "table", "output format: table, json")
	rootCmd.PersistentFlags().String("url", "", "gateway URL (default from $"+config.EnvURL+" or profile)")
}

func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		output.Warn("Could not load config: %v", err)
		cfg = config.Default()
	}
}

func profileName(cmd *cobra.Command) string {
	profile, _ := cmd.Flags().GetString("profile")
	return profile
}

func gatewayURL(cmd *cobra.Command) string {
	flagURL, _ := cmd.Flags().GetString("url")
	return strings.TrimRight(cfg.ResolveURL(flagURL, profileName(cmd)), "/")
}

func jsonOutput(cmd *cobra.Command) bool {
	format, _ := cmd.Flags().GetString("output")
	return format == "json"
}

// session returns a client carrying the saved token of the selected profile.
func session(cmd *cobra.Command) (*client.Client, error) {
	profile := profileName(cmd)
	p, err := cfg.GetProfile(profile)
	if err != nil || p.AccessToken == "" {
		return nil, fmt.Errorf("not logged in to profile '%s', run 'qline login'", profile)
	}
	if p.Expired(now()) {
		return nil, fmt.Errorf("session for profile '%s' expired, run 'qline login'", profile)
	}
	return client.New(gatewayURL(cmd), p.AccessToken), nil
}

func describe(err error) error {
	if errors.Is(err, client.ErrUnauthorized) {
		return fmt.Errorf("%w, run 'qline login'", err)
	}
	return err
}
