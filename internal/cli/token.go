package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tasknova/internal/middleware"
)

var (
	tokenSubject string
	tokenScope   string
	tokenTTL     time.Duration
)

func init() {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the admin API",
		RunE:  runToken,
	}
	cmd.Flags().StringVar(&tokenSubject, "subject", "admin", "Token subject")
	cmd.Flags().StringVar(&tokenScope, "scope", middleware.ScopeRead, "Token scope: read or write")
	cmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "Token lifetime")

	RootCmd.AddCommand(cmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is not set, the admin API is open")
	}
	tok, err := middleware.IssueToken([]byte(cfg.Auth.JWTSecret), tokenSubject, tokenScope, tokenTTL)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), tok)
	return nil
}
