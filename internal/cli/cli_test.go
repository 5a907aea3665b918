package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"token-ledger/config"
	"token-ledger/internal/app"
	"token-ledger/internal/core/domain"
	"token-ledger/internal/core/ports"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// fixture is an in-memory ledger with one customer holding a pending
// exchange request.
type fixture struct {
	app      *app.App
	customer *domain.Account
	request  *domain.ExchangeRequest
}

func newFixture(t *testing.T, withOperator bool) *fixture {
	t.Helper()
	cfg := &config.Config{
		JWT: config.JWTConfig{Secret: "cli-test-secret-0123456789abcdef", Expiry: time.Hour, Issuer: "token-ledger"},
		AES: config.AESConfig{Key: "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"},
		Ledger: config.LedgerConfig{
			StoreBackend:     config.BackendMemory,
			PointsMultiplier: "1.25",
			ExchangeRate:     "0.5",
			MaxRetries:       3,
			StoreTimeout:     time.Second,
		},
	}
	if withOperator {
		cfg.Admin = config.AdminConfig{Email: "ops@example.com", Password: "operator-pass", DisplayName: "Operator"}
	}

	ctx := context.Background()
	a, err := app.Build(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)

	customer, err := a.AuthSvc.Register(ctx, ports.RegisterRequest{Email: "carol@example.com", Password: "password123", DisplayName: "Carol"})
	require.NoError(t, err)
	_, err = a.LedgerSvc.PurchaseCredits(ctx, customer.ID, decimal.NewFromInt(100))
	require.NoError(t, err)
	_, err = a.LedgerSvc.PurchaseToken(ctx, customer.ID, "gold")
	require.NoError(t, err)
	req, err := a.LedgerSvc.RedeemPoints(ctx, customer.ID, 100, "carol@pix.example")
	require.NoError(t, err)

	return &fixture{app: a, customer: customer, request: req}
}

func (f *fixture) loader() Loader {
	return func(context.Context, *RootOptions, io.Writer) (*app.App, error) { return f.app, nil }
}

// execute runs ledgerctl with args and returns stdout, stderr and the error.
func execute(load Loader, args ...string) (string, string, error) {
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewRootCommand(load)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func decodeJSON(t *testing.T, out string, data interface{}) CLIResponse {
	t.Helper()
	var resp CLIResponse
	resp.Data = data
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	return resp
}
