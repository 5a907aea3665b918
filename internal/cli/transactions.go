package cli

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"token-ledger/internal/adapter/http/dto"
	"token-ledger/internal/app"
	"token-ledger/internal/core/domain"
	"token-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// TransactionsOptions holds flags for the transactions export command.
type TransactionsOptions struct {
	*RootOptions
	Period  string
	Account string
	Kind    string
	Output  string
}

// NewTransactionsCommand creates the transactions command group.
func NewTransactionsCommand(rootOpts *RootOptions, load Loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "Inspect the transaction history",
	}
	cmd.AddCommand(newTransactionsExportCommand(rootOpts, load))
	return cmd
}

func newTransactionsExportCommand(rootOpts *RootOptions, load Loader) *cobra.Command {
	opts := &TransactionsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export transaction entries as CSV",
		Long: `Export transaction entries, newest first. Text format writes CSV;
--format json writes the standard JSON envelope.

Examples:
  ledgerctl transactions export --period month
  ledgerctl transactions export --account 6f1c2b4e-... --kind TOKEN_LOSS -o losses.csv`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, load, func(ctx context.Context, a *app.App) error {
				return runTransactionsExport(ctx, cmd, opts, a)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Period, "period", "all", "time window (day|week|month|all)")
	cmd.Flags().StringVar(&opts.Account, "account", "", "only entries of this account id")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "only entries of this kind")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write to file instead of stdout")
	return cmd
}

func (o *TransactionsOptions) params(reporting ports.ReportingService) (ports.TransactionListParams, error) {
	var params ports.TransactionListParams

	since, err := reporting.PeriodStart(o.Period)
	if err != nil {
		return params, WrapExitError(ExitCommandError, "invalid period", err)
	}
	params.Since = since

	if o.Account != "" {
		id, err := uuid.Parse(o.Account)
		if err != nil {
			return params, NewExitError(ExitCommandError, fmt.Sprintf("invalid account id %q", o.Account))
		}
		params.AccountID = &id
	}
	if o.Kind != "" {
		kind := domain.EntryKind(strings.ToUpper(o.Kind))
		if !kind.Valid() {
			return params, NewExitError(ExitCommandError, fmt.Sprintf("invalid kind %q", o.Kind))
		}
		params.Kind = &kind
	}
	return params, nil
}

func runTransactionsExport(ctx context.Context, cmd *cobra.Command, opts *TransactionsOptions, a *app.App) error {
	params, err := opts.params(a.ReportingSvc)
	if err != nil {
		return err
	}

	out := formatter(cmd, opts.RootOptions)
	entries, err := a.LedgerSvc.ListTransactions(ctx, params)
	if err != nil {
		return out.Fail("failed to list transactions", err)
	}

	if opts.Output != "" {
		f, err := os.Create(opts.Output)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to create output file", err)
		}
		defer f.Close()
		out.Writer = f
	}

	resp := dto.NewTransactionListResponse(entries)
	if err := out.Success(resp, func(w io.Writer) error { return writeTransactionsCSV(w, resp.Items) }); err != nil {
		return WrapExitError(ExitCommandError, "failed to write export", err)
	}
	out.VerboseLog("exported %d entr(ies)", resp.Total)
	return nil
}

func writeTransactionsCSV(w io.Writer, items []dto.TransactionResponse) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "account_id", "kind", "amount", "description", "created_at"}); err != nil {
		return err
	}
	for _, it := range items {
		if err := cw.Write([]string{it.ID, it.AccountID, it.Kind, it.Amount, it.Description, it.CreatedAt}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
