package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/craftyxhub/craftyx-portal/apiclient"
	"github.com/spf13/cobra"
)

func newPostsCmd(opts *options) *cobra.Command {
	var query apiclient.PostsQuery

	cmd := &cobra.Command{
		Use:   "posts",
		Short: "List posts",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := opts.connect(cmd.Context())
			if err != nil {
				return err
			}
			posts, err := client.ListPosts(cmd.Context(), query)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(posts) == 0 {
				fmt.Fprintln(out, "No posts found.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tVIEWS")
			for _, p := range posts {
				fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", p.ID, p.Title, p.Status, p.ViewCount())
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&query.Status, "status", "", "Filter by status (draft, published, scheduled, archived)")
	cmd.Flags().Int64Var(&query.CategoryID, "category", 0, "Filter by category id")
	cmd.Flags().IntVar(&query.Page, "page", 0, "Page number")
	cmd.Flags().IntVar(&query.PerPage, "per-page", 0, "Posts per page")
	return cmd
}

func newCategoriesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := opts.connect(cmd.Context())
			if err != nil {
				return err
			}
			categories, err := client.ListCategories(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tSLUG")
			for _, c := range categories {
				fmt.Fprintf(w, "%d\t%s\t%s\n", c.ID, c.Name, c.Slug)
			}
			return w.Flush()
		},
	}
}

func newStatsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show dashboard statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := opts.connect(cmd.Context())
			if err != nil {
				return err
			}
			stats, err := client.GetDashboardStats(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Posts\t%d\n", stats.TotalPosts)
			fmt.Fprintf(w, "Published\t%d\n", stats.PublishedPosts)
			fmt.Fprintf(w, "Drafts\t%d\n", stats.DraftPosts)
			fmt.Fprintf(w, "Views\t%d\n", stats.TotalViews)
			fmt.Fprintf(w, "Users\t%d\n", stats.TotalUsers)
			fmt.Fprintf(w, "Comments\t%d\n", stats.TotalComments)
			return w.Flush()
		},
	}
}

func newGenerateCmd(opts *options) *cobra.Command {
	var req apiclient.GenerateRequest

	cmd := &cobra.Command{
		Use:   "generate <prompt>",
		Short: "Generate content variants with the AI endpoint",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Prompt = strings.Join(args, " ")
			client, _, err := opts.connect(cmd.Context())
			if err != nil {
				return err
			}
			variants, err := client.GenerateVariants(cmd.Context(), req)
			if err != nil {
				return err
			}
			for i, v := range variants {
				fmt.Fprintf(cmd.OutOrStdout(), "--- variant %d ---\n%s\n", i+1, v.Content)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Type, "type", "", "Kind of content (title, excerpt, content, tags)")
	cmd.Flags().StringVar(&req.Tone, "tone", "", "Tone of voice")
	cmd.Flags().IntVar(&req.Count, "count", 0, "Number of variants")
	return cmd
}
