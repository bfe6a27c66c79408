package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/quoteline-systems/quoteline-stack/cli/internal/client"
	"github.com/quoteline-systems/quoteline-stack/cli/internal/config"
	"github.com/quoteline-systems/quoteline-stack/cli/pkg/output"
)

// EnvPassword is read when login is run without --password.
const EnvPassword = "QLINE_PASSWORD"

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to the gateway",
	Long:  "Exchange a username and password for an access token and save it in the selected profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		password, _ := cmd.Flags().GetString("password")
		if password == "" {
			password = os.Getenv(EnvPassword)
		}
		if username == "" {
			return fmt.Errorf("username is required")
		}
		if password == "" {
			return fmt.Errorf("password is required (use --password or $%s)", EnvPassword)
		}

		url := gatewayURL(cmd)
		resp, err := client.New(url, "").Login(cmd.Context(), username, password)
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}

		profile := profileName(cmd)
		p := &config.Profile{
			URL:         url,
			Username:    username,
			AccessToken: resp.AccessToken,
		}
		if resp.ExpiresIn > 0 {
			p.ExpiresAt = now().Add(time.Duration(resp.ExpiresIn) * time.Second).UTC()
		}
		if err := cfg.SaveProfile(profile, p); err != nil {
			return fmt.Errorf("failed to save credentials: %w", err)
		}

		output.Success("Logged in as %s", username)
		output.Info("Profile '%s' saved to %s", profile, cfg.Path())
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out of the gateway",
	Long:  "Revoke the saved access token when the gateway supports it and remove the profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		profile := profileName(cmd)

		if c, err := session(cmd); err == nil {
			_, err := c.Revoke(cmd.Context())
			var apiErr *client.APIError
			switch {
			case err == nil:
			case errors.As(err, &apiErr) && apiErr.Status == http.StatusNotImplemented:
			default:
				output.Warn("Could not revoke token: %v", err)
			}
		}

		if err := cfg.RemoveProfile(profile); err != nil {
			return err
		}

		output.Success("Logged out of profile '%s'", profile)
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := session(cmd)
		if err != nil {
			return err
		}
		user, err := c.Me(cmd.Context())
		if err != nil {
			return describe(err)
		}

		if jsonOutput(cmd) {
			return output.JSON(user)
		}

		p, _ := cfg.GetProfile(profileName(cmd))
		output.Info("Username: %s", user.Username)
		if user.FullName != "" {
			output.Info("Name:     %s", user.FullName)
		}
		if user.Email != "" {
			output.Info("Email:    %s", user.Email)
		}
		output.Info("Gateway:  %s", gatewayURL(cmd))
		if !p.ExpiresAt.IsZero() {
			output.Info("Expires:  %s", p.ExpiresAt.Local().Format(time.RFC1123))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)

	loginCmd.Flags().StringP("username", "u", "", "Username")
	loginCmd.Flags().StringP("password", "p", "", "Password (default $"+EnvPassword+")")
}
