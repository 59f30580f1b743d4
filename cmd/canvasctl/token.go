package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"nodal/pkg/auth"
)

var (
	tokenWorkspaces []string
	tokenTTL        time.Duration
	tokenIssuer     string
)

var tokenCmd = &cobra.Command{
	Use:   "token <user-id>",
	Short: "Mint an API token signed with JWT_SECRET",
	Long: `Mint a bearer token for the API. The secret is read from JWT_SECRET.
Without --workspace the token opens every workspace.

Examples:
  JWT_SECRET=dev canvasctl token alice --workspace ws-1 --ttl 24h`,
	Args: cobra.ExactArgs(1),
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().StringSliceVar(&tokenWorkspaces, "workspace", nil, "workspace the token may open (repeatable)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "token lifetime")
	tokenCmd.Flags().StringVar(&tokenIssuer, "issuer", "nodal", "token issuer, must match JWT_ISSUER")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return errors.New("JWT_SECRET is not set")
	}
	token, err := auth.NewJWTGenerator(auth.JWTConfig{SecretKey: secret, Issuer: tokenIssuer}).
		GenerateToken(args[0], tokenWorkspaces, tokenTTL)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
	return err
}
