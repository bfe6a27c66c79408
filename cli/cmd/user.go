package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/quoteline-systems/quoteline-stack/cli/pkg/output"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Gateway account tooling",
	Long:  "Prepare accounts for the gateway's records.json user store",
}

var userHashCmd = &cobra.Command{
	Use:   "hash-password",
	Short: "Print a bcrypt hash for a password",
	Long:  "Hash a password taken from --password, $" + EnvPassword + " or the first line of stdin",
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := hashPassword(cmd)
		if err != nil {
			return err
		}
		fmt.Fprintln(output.Out, hash)
		return nil
	},
}

// userRecord mirrors one entry of the gateway's records.json.
type userRecord struct {
	Username       string `json:"username"`
	FullName       string `json:"full_name,omitempty"`
	Email          string `json:"email,omitempty"`
	HashedPassword string `json:"hashed_password"`
	Disabled       bool   `json:"disabled"`
}

var userRecordCmd = &cobra.Command{
	Use:   "record USERNAME",
	Short: "Print a records.json entry for a new account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		username := strings.TrimSpace(args[0])
		if username == "" {
			return fmt.Errorf("username is required")
		}
		hash, err := hashPassword(cmd)
		if err != nil {
			return err
		}

		fullName, _ := cmd.Flags().GetString("full-name")
		email, _ := cmd.Flags().GetString("email")
		disabled, _ := cmd.Flags().GetBool("disabled")

		return output.JSON(map[string]userRecord{
			username: {
				Username:       username,
				FullName:       fullName,
				Email:          email,
				HashedPassword: hash,
				Disabled:       disabled,
			},
		})
	},
}

func hashPassword(cmd *cobra.Command) (string, error) {
	password, _ := cmd.Flags().GetString("password")
	if password == "" {
		password = os.Getenv(EnvPassword)
	}
	if password == "" {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("password is required (use --password, $%s or stdin)", EnvPassword)
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if password == "" {
		return "", fmt.Errorf("password must not be empty")
	}

	cost, _ := cmd.Flags().GetInt("cost")
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userHashCmd, userRecordCmd)

	for _, c := range []*cobra.Command{userHashCmd, userRecordCmd} {
		c.Flags().StringP("password", "p", "", "Password (default $"+EnvPassword+" or stdin)")
		c.Flags().Int("cost", bcrypt.DefaultCost, "bcrypt cost")
	}
	userRecordCmd.Flags().String("full-name", "", "Full name")
	userRecordCmd.Flags().String("email", "", "Email address")
	userRecordCmd.Flags().Bool("disabled", false, "Create the account disabled")
}
