package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Sternrassler/jobsuche-client/pkg/client"
)

// DefaultConcurrency is the default number of parallel detail lookups.
const DefaultConcurrency = 4

func newDetailsCmd(a *app) *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "details REFNR...",
		Short: "Fetch listing details by reference number",
		Long: `Fetch the full record for one or more listings. Lookups run
concurrently; results are printed one JSON object per line in argument order.`,
		Args: cobra.MinimumNArgs(1),
	}
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", DefaultConcurrency, "parallel lookups")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		results := make([]*client.JobDetails, len(args))

		g, ctx := errgroup.WithContext(cmd.Context())
		g.SetLimit(max(concurrency, 1))

		for i, refnr := range args {
			g.Go(func() error {
				details, err := a.client.JobDetails(ctx, refnr)
				if err != nil {
					return fmt.Errorf("details for %s: %w", refnr, err)
				}
				results[i] = details
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		for _, details := range results {
			if err := enc.Encode(details); err != nil {
				return fmt.Errorf("write details: %w", err)
			}
		}
		return nil
	}

	return cmd
}
