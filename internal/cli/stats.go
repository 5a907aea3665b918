package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"token-ledger/internal/adapter/http/dto"
	"token-ledger/internal/app"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// StatsOptions holds flags for the stats command.
type StatsOptions struct {
	*RootOptions
	Period  string
	Account string
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions, load Loader) *cobra.Command {
	opts := &StatsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "stats",
		Short:         "Summarize ledger entries per kind",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var accountID *uuid.UUID
			if opts.Account != "" {
				id, err := uuid.Parse(opts.Account)
				if err != nil {
					return NewExitError(ExitCommandError, fmt.Sprintf("invalid account id %q", opts.Account))
				}
				accountID = &id
			}
			return withApp(cmd, rootOpts, load, func(ctx context.Context, a *app.App) error {
				return runStats(ctx, cmd, opts, a, accountID)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Period, "period", "all", "time window (day|week|month|all)")
	cmd.Flags().StringVar(&opts.Account, "account", "", "only entries of this account id")
	return cmd
}

func runStats(ctx context.Context, cmd *cobra.Command, opts *StatsOptions, a *app.App, accountID *uuid.UUID) error {
	out := formatter(cmd, opts.RootOptions)
	stats, err := a.ReportingSvc.GetStats(ctx, accountID, opts.Period)
	if err != nil {
		return out.Fail("failed to compute stats", err)
	}

	resp := dto.NewStatsResponse(stats)
	return out.Success(resp, func(w io.Writer) error {
		kinds := make([]string, 0, len(resp.ByKind))
		for k := range resp.ByKind {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)

		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "KIND\tCOUNT\tAMOUNT")
		for _, k := range kinds {
			fmt.Fprintf(tw, "%s\t%d\t%s\n", k, resp.ByKind[k].Count, resp.ByKind[k].Amount)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w, "\n%d entr(ies) in period %s\n", resp.Entries, resp.Period)
		return err
	})
}
