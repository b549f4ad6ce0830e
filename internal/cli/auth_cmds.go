package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const passwordEnvVar = "CRAFTYX_PASSWORD"

func newLoginCmd(opts *options) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and save the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv(passwordEnvVar)
			}
			if username == "" || password == "" {
				return fmt.Errorf("--username and --password (or %s) are required", passwordEnvVar)
			}

			_, provider, err := opts.connect(cmd.Context())
			if err != nil {
				return err
			}
			state, err := provider.Login(cmd.Context(), username, password)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if state.Session.RequiresOTP() {
				fmt.Fprintln(out, "A one-time passcode has been sent. Finish with: craftyx otp <code>")
				return nil
			}
			fmt.Fprintf(out, "Signed in as %s\n", state.Session.Username)
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (or set "+passwordEnvVar+")")
	return cmd
}

func newOTPCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "otp <code>",
		Short: "Complete sign in with a one-time passcode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, provider, err := opts.connect(cmd.Context())
			if err != nil {
				return err
			}
			state, err := provider.VerifyOTP(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", state.Session.Username)
			return nil
		},
	}
}

func newLogoutCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the saved session",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, provider, err := opts.connect(cmd.Context())
			if err != nil {
				return err
			}
			if err := provider.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func newWhoamiCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the saved session",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, provider, err := opts.connect(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			state := provider.State()
			switch {
			case state.Session == nil:
				fmt.Fprintln(out, "Not signed in")
			case !state.IsAuthenticated():
				fmt.Fprintf(out, "Session for %s has expired, sign in again\n", state.Session.Username)
			case state.Session.RequiresOTP():
				fmt.Fprintf(out, "Signed in as %s, passcode pending\n", state.Session.Username)
			default:
				fmt.Fprintf(out, "Signed in as %s (%s)\n", state.Session.Username, state.Role())
			}
			return nil
		},
	}
}
