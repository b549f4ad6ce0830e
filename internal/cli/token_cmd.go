package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/craftyxhub/craftyx-portal/token"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Work with access tokens",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "inspect <token>",
		Short: "Show a token's claims and expiry without verifying it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := strings.TrimSpace(args[0])
			out := cmd.OutOrStdout()

			claims := &token.Claims{}
			if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
				fmt.Fprintln(out, "expired: true")
				return fmt.Errorf("token cannot be decoded: %w", err)
			}

			fmt.Fprintf(out, "subject: %s\n", claims.Subject)
			fmt.Fprintf(out, "name:    %s\n", claims.Name)
			fmt.Fprintf(out, "role:    %s\n", claims.Role)
			if claims.Issuer != "" {
				fmt.Fprintf(out, "issuer:  %s\n", claims.Issuer)
			}
			if exp, ok := token.ExpiresAt(raw); ok {
				fmt.Fprintf(out, "expires: %s\n", exp.UTC().Format(time.RFC3339))
			} else {
				fmt.Fprintln(out, "expires: unknown (no exp claim)")
			}
			fmt.Fprintf(out, "expired: %t\n", token.IsTokenExpired(raw))
			return nil
		},
	})
	return cmd
}
