// Package cli implements the craftyx command line tool.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/craftyxhub/craftyx-portal/apiclient"
	"github.com/craftyxhub/craftyx-portal/internal/config"
	"github.com/craftyxhub/craftyx-portal/internal/logger"
	"github.com/craftyxhub/craftyx-portal/sessions"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var version = "dev" // Will be set during build

// options are the persistent flags shared by every command.
type options struct {
	apiURL      string
	sessionFile string
	logLevel    string
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	cfg := config.New()
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "craftyx",
		Short: "CraftyXhub - content tools and API access",
		Long: `craftyx renders and strips post content locally, inspects access tokens,
and talks to the CraftyXhub API with a saved session.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.InitWithWriter(cmd.ErrOrStderr(), opts.logLevel, "console")
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.apiURL, "api", cfg.GetAPIBaseURL(), "API base URL")
	rootCmd.PersistentFlags().StringVar(&opts.sessionFile, "session-file", "", "Session file (defaults to the user config dir)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "craftyx version %s\n", version)
		},
	})
	rootCmd.AddCommand(newFormatCmd())
	rootCmd.AddCommand(newStripCmd())
	rootCmd.AddCommand(newTokenCmd())
	rootCmd.AddCommand(newLoginCmd(opts))
	rootCmd.AddCommand(newOTPCmd(opts))
	rootCmd.AddCommand(newLogoutCmd(opts))
	rootCmd.AddCommand(newWhoamiCmd(opts))
	rootCmd.AddCommand(newPostsCmd(opts))
	rootCmd.AddCommand(newCategoriesCmd(opts))
	rootCmd.AddCommand(newStatsCmd(opts))
	rootCmd.AddCommand(newGenerateCmd(opts))

	return rootCmd
}

// Execute runs the root command
func Execute() error {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// connect builds an API client and a hydrated session provider backed by the
// session file. Content requests carry the provider's access token. A failed
// restore is logged, not returned.
func (o *options) connect(ctx context.Context) (*apiclient.Client, *sessions.Provider, error) {
	path := o.sessionFile
	if path == "" {
		var err error
		if path, err = sessions.DefaultFileStorePath(); err != nil {
			return nil, nil, fmt.Errorf("failed to locate session file: %w", err)
		}
	}

	authClient := apiclient.New(o.apiURL)
	provider := sessions.NewProvider(authClient, sessions.NewFileStore(path))
	if err := provider.Hydrate(ctx); err != nil {
		// login and logout must still work, so carry on with whatever state remains
		log.Warn().Err(err).Msg("could not restore session")
	}
	return apiclient.New(o.apiURL, apiclient.WithTokenSource(provider)), provider, nil
}

// readInput reads the file named by args[0], or stdin when there is none or it is "-".
func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	return string(data), nil
}
