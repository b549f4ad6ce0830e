package cli

import (
	"fmt"

	"github.com/craftyxhub/craftyx-portal/content"
	"github.com/spf13/cobra"
)

func newFormatCmd() *cobra.Command {
	var excerpt int

	cmd := &cobra.Command{
		Use:   "format [file]",
		Short: "Render markdown to sanitized HTML",
		Long: `Render markdown from a file or stdin to sanitized HTML with inline styles.
With --excerpt, print a plain-text preview of at most N characters instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			if excerpt > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), content.Excerpt(input, excerpt))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), content.ToHTML(input))
			return nil
		},
	}

	cmd.Flags().IntVar(&excerpt, "excerpt", 0, "Print a plain-text excerpt of at most N characters")
	return cmd
}

func newStripCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "strip [file]",
		Short: "Remove all HTML tags",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), content.StripHTML(input))
			return nil
		},
	}
}
