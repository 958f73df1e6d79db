package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/jobsuche-client/pkg/pagination"
)

func newSearchCmd(a *app) *cobra.Command {
	var (
		all   bool
		limit int
		page  int
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search job listings",
		Long: `Search job listings. Without --all one page is printed as the raw
response envelope. With --all every matching listing is fetched page by page
and printed as one JSON object per line.`,
		Example: `  jobsuche search --was "Softwareentwickler" --wo Berlin --umkreis 25
  jobsuche search --was Go --arbeitszeit vz,ho --all --limit 200`,
		Args: cobra.NoArgs,
	}
	readCriteria := criteriaFlags(cmd.Flags())
	cmd.Flags().BoolVar(&all, "all", false, "fetch all pages and print one listing per line")
	cmd.Flags().IntVar(&limit, "limit", 0, "stop after this many listings with --all (0 means no limit)")
	cmd.Flags().IntVar(&page, "page", 0, "page to fetch without --all")

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		opts, err := readCriteria().options()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		enc := json.NewEncoder(cmd.OutOrStdout())

		if !all {
			if page > 0 {
				opts = opts.Builder().Page(page).Build()
			}
			resp, err := a.client.ListJobs(ctx, opts)
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		}

		var pageOpts []pagination.Option
		if limit > 0 {
			pageOpts = append(pageOpts, pagination.WithLimit(limit))
		}

		it := a.client.Jobs(ctx, opts, pageOpts...)
		count := 0
		for listing, err := range it.All() {
			if err != nil {
				return fmt.Errorf("search failed after %d listings: %w", count, err)
			}
			if err := enc.Encode(listing); err != nil {
				return fmt.Errorf("write listing: %w", err)
			}
			count++
		}

		a.logger.Info().
			Int("listings", count).
			Int("pages", it.PagesFetched()).
			Msg("Search finished")
		return nil
	}

	return cmd
}
