package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"token-ledger/internal/adapter/http/dto"
	"token-ledger/internal/app"
	"token-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var alertKinds = []domain.AlertKind{
	domain.AlertKindPixInvalid,
	domain.AlertKindExchangeApproved,
	domain.AlertKindExchangeDenied,
	domain.AlertKindTokenSold,
}

// AlertsOptions holds flags for the alerts raise command.
type AlertsOptions struct {
	*RootOptions
	Kind    string
	Message string
}

// NewAlertsCommand creates the alerts command group.
func NewAlertsCommand(rootOpts *RootOptions, load Loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Send and inspect account alerts",
	}
	cmd.AddCommand(newAlertsRaiseCommand(rootOpts, load))
	cmd.AddCommand(newAlertsListCommand(rootOpts, load))
	return cmd
}

func newAlertsRaiseCommand(rootOpts *RootOptions, load Loader) *cobra.Command {
	opts := &AlertsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "raise <account-id>",
		Short: "Raise an alert for an account",
		Long: `Raise an unread alert for an account.

Example:
  ledgerctl alerts raise 6f1c2b4e-... --kind PIX_INVALID --message "Check your Pix key"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			accountID, err := uuid.Parse(args[0])
			if err != nil {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid account id %q", args[0]))
			}
			kind, err := parseAlertKind(opts.Kind)
			if err != nil {
				return err
			}
			if strings.TrimSpace(opts.Message) == "" {
				return NewExitError(ExitCommandError, "--message is required")
			}

			return withApp(cmd, rootOpts, load, func(ctx context.Context, a *app.App) error {
				out := formatter(cmd, rootOpts)
				alert, err := a.AlertSvc.Raise(ctx, accountID, kind, opts.Message)
				if err != nil {
					return out.Fail("failed to raise alert", err)
				}
				resp := dto.NewAlertResponse(alert)
				return out.Success(resp, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Raised %s alert %s\n", resp.Kind, resp.ID)
					return err
				})
			})
		},
	}

	cmd.Flags().StringVar(&opts.Kind, "kind", "", "alert kind (PIX_INVALID|EXCHANGE_APPROVED|EXCHANGE_DENIED|TOKEN_SOLD)")
	cmd.Flags().StringVarP(&opts.Message, "message", "m", "", "alert text")
	_ = cmd.MarkFlagRequired("kind")
	return cmd
}

func newAlertsListCommand(rootOpts *RootOptions, load Loader) *cobra.Command {
	return &cobra.Command{
		Use:           "list <account-id>",
		Short:         "List an account's unread alerts, oldest first",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			accountID, err := uuid.Parse(args[0])
			if err != nil {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid account id %q", args[0]))
			}

			return withApp(cmd, rootOpts, load, func(ctx context.Context, a *app.App) error {
				out := formatter(cmd, rootOpts)
				alerts, err := a.AlertSvc.ListUnread(ctx, accountID)
				if err != nil {
					return out.Fail("failed to list alerts", err)
				}
				items := make([]dto.AlertResponse, 0, len(alerts))
				for i := range alerts {
					items = append(items, dto.NewAlertResponse(&alerts[i]))
				}
				return out.Success(items, func(w io.Writer) error {
					for _, it := range items {
						if _, err := fmt.Fprintf(w, "%s  %-18s %s\n", it.CreatedAt, it.Kind, it.Message); err != nil {
							return err
						}
					}
					return nil
				})
			})
		},
	}
}

func parseAlertKind(s string) (domain.AlertKind, error) {
	kind := domain.AlertKind(strings.ToUpper(s))
	for _, k := range alertKinds {
		if k == kind {
			return kind, nil
		}
	}
	return "", NewExitError(ExitCommandError, fmt.Sprintf("invalid alert kind %q", s))
}
