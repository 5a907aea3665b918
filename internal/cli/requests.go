package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"token-ledger/internal/adapter/http/dto"
	"token-ledger/internal/app"
	"token-ledger/internal/core/domain"
	"token-ledger/internal/core/ports"
	"token-ledger/internal/service"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// RequestsOptions holds flags for the requests list command.
type RequestsOptions struct {
	*RootOptions
	Status string
	Sort   string
}

// NewRequestsCommand creates the requests command group.
func NewRequestsCommand(rootOpts *RootOptions, load Loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "requests",
		Short: "Review point exchange requests",
		Long: `List, approve and deny point exchange requests as the configured
operator (admin.email).

Examples:
  ledgerctl requests list --status PENDING --sort value_high
  ledgerctl requests approve 6f1c2b4e-...
  ledgerctl requests deny 6f1c2b4e-... --format json`,
	}

	cmd.AddCommand(newRequestsListCommand(rootOpts, load))
	cmd.AddCommand(newRequestsDecideCommand(rootOpts, load, "approve", "Approve a pending request and pay it out"))
	cmd.AddCommand(newRequestsDecideCommand(rootOpts, load, "deny", "Deny a pending request and return its points"))
	return cmd
}

func newRequestsListCommand(rootOpts *RootOptions, load Loader) *cobra.Command {
	opts := &RequestsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List exchange requests with the pending payout total",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := opts.params()
			if err != nil {
				return err
			}
			return withApp(cmd, rootOpts, load, func(ctx context.Context, a *app.App) error {
				return runRequestsList(ctx, cmd, opts, a, params)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Status, "status", "", "filter by status (PENDING|APPROVED|DENIED)")
	cmd.Flags().StringVar(&opts.Sort, "sort", string(ports.SortNewest), "order (newest|oldest|value_high|value_low)")
	return cmd
}

func (o *RequestsOptions) params() (ports.ExchangeListParams, error) {
	var params ports.ExchangeListParams
	if o.Status != "" {
		st := domain.ExchangeStatus(strings.ToUpper(o.Status))
		if !st.Valid() {
			return params, NewExitError(ExitCommandError, fmt.Sprintf("invalid status %q", o.Status))
		}
		params.Status = &st
	}
	switch s := ports.ExchangeSort(o.Sort); s {
	case ports.SortNewest, ports.SortOldest, ports.SortValueHigh, ports.SortValueLow:
		params.Sort = s
	default:
		return params, NewExitError(ExitCommandError, fmt.Sprintf("invalid sort %q", o.Sort))
	}
	return params, nil
}

func runRequestsList(ctx context.Context, cmd *cobra.Command, opts *RequestsOptions, a *app.App, params ports.ExchangeListParams) error {
	out := formatter(cmd, opts.RootOptions)
	operator, err := operatorID(a)
	if err != nil {
		return err
	}

	reqs, err := a.ExchangeSvc.ListExchangeRequests(ctx, operator, params)
	if err != nil {
		return out.Fail("failed to list exchange requests", err)
	}
	out.VerboseLog("listed %d exchange request(s)", len(reqs))

	resp := dto.ExchangeListResponse{
		Items:              make([]dto.ExchangeResponse, 0, len(reqs)),
		PendingPayoutTotal: service.PendingPayoutTotal(reqs).StringFixed(2),
	}
	for i := range reqs {
		resp.Items = append(resp.Items, dto.NewExchangeResponse(&reqs[i]))
	}

	return out.Success(resp, func(w io.Writer) error {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tACCOUNT\tPOINTS\tPAYOUT\tDESTINATION\tSTATUS\tCREATED")
		for _, r := range resp.Items {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
				r.ID, r.AccountName, r.PointsRequested, r.PayoutAmount, r.PayoutDestination, r.Status, r.CreatedAt)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w, "\n%d request(s), pending payout total %s\n", len(resp.Items), resp.PendingPayoutTotal)
		return err
	})
}

func newRequestsDecideCommand(rootOpts *RootOptions, load Loader, verb, short string) *cobra.Command {
	return &cobra.Command{
		Use:           verb + " <request-id>",
		Short:         short,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			requestID, err := uuid.Parse(args[0])
			if err != nil {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid request id %q", args[0]))
			}
			return withApp(cmd, rootOpts, load, func(ctx context.Context, a *app.App) error {
				return runRequestsDecide(ctx, cmd, rootOpts, a, verb, requestID)
			})
		},
	}
}

func runRequestsDecide(ctx context.Context, cmd *cobra.Command, opts *RootOptions, a *app.App, verb string, requestID uuid.UUID) error {
	out := formatter(cmd, opts)
	operator, err := operatorID(a)
	if err != nil {
		return err
	}

	decide := a.ExchangeSvc.Approve
	if verb == "deny" {
		decide = a.ExchangeSvc.Deny
	}
	req, err := decide(ctx, operator, requestID)
	if err != nil {
		return out.Fail("failed to "+verb+" request", err)
	}

	resp := dto.NewExchangeResponse(req)
	return out.Success(resp, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "Request %s is now %s (%d points, payout %s)\n",
			resp.ID, resp.Status, resp.PointsRequested, resp.PayoutAmount)
		return err
	})
}

func operatorID(a *app.App) (uuid.UUID, error) {
	if a.Operator == nil {
		return uuid.Nil, NewExitError(ExitCommandError, "no operator configured: set admin.email")
	}
	return a.Operator.ID, nil
}
