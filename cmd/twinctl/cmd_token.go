package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	httpMW "github.com/yungbote/skintwin-backend/internal/http/middleware"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Sign a development access token for the HTTP API",
		Long: `Sign an HS256 access token with JWT_SECRET_KEY (or --secret).
Meant for local testing against a dev server.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("user id: %w", err)
			}
			secret, _ := cmd.Flags().GetString("secret")
			if secret == "" {
				secret = os.Getenv("JWT_SECRET_KEY")
			}
			if secret == "" {
				return fmt.Errorf("no secret: set JWT_SECRET_KEY or --secret")
			}
			ttl, _ := cmd.Flags().GetDuration("ttl")
			token, err := httpMW.SignAccessToken(secret, userID, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().String("secret", "", "Signing secret (defaults to JWT_SECRET_KEY)")
	cmd.Flags().Duration("ttl", time.Hour, "Token lifetime")
	return cmd
}
