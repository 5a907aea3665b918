package cli

import (
	"context"
	"testing"

	"token-ledger/internal/adapter/http/dto"
	"token-ledger/internal/core/domain"
	"token-ledger/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestsList_Text(t *testing.T) {
	f := newFixture(t, true)

	out, _, err := execute(f.loader(), "requests", "list", "--status", "pending")
	require.NoError(t, err)
	assert.Contains(t, out, f.request.ID.String())
	assert.Contains(t, out, "carol@pix.example")
	assert.Contains(t, out, "pending payout total 50.00")
}

func TestRequestsList_JSON(t *testing.T) {
	f := newFixture(t, true)

	out, _, err := execute(f.loader(), "requests", "list", "--format", "json")
	require.NoError(t, err)

	var list dto.ExchangeListResponse
	resp := decodeJSON(t, out, &list)
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "Carol", list.Items[0].AccountName)
	assert.Equal(t, "50.00", list.PendingPayoutTotal)
}

func TestRequestsList_InvalidFlags(t *testing.T) {
	f := newFixture(t, true)

	_, _, err := execute(f.loader(), "requests", "list", "--status", "LOST")
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, _, err = execute(f.loader(), "requests", "list", "--sort", "random")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRequestsList_NoOperator(t *testing.T) {
	f := newFixture(t, false)

	_, _, err := execute(f.loader(), "requests", "list")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "admin.email")
}

func TestRequestsApprove(t *testing.T) {
	f := newFixture(t, true)
	id := f.request.ID.String()

	out, _, err := execute(f.loader(), "requests", "approve", id)
	require.NoError(t, err)
	assert.Contains(t, out, "APPROVED")

	entries, err := f.app.LedgerSvc.ListTransactions(context.Background(), transactionsOf(f.customer.ID, domain.EntryKindPointExchange))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "50", entries[0].Amount.String())

	// A decided request cannot be decided again.
	out, _, err = execute(f.loader(), "requests", "deny", id, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	resp := decodeJSON(t, out, nil)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, apperror.CodeInvalidTransition, resp.Error.Code)
}

func TestRequestsDeny_RestoresPoints(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	before, err := f.app.LedgerSvc.GetAccount(ctx, f.customer.ID)
	require.NoError(t, err)

	_, _, err = execute(f.loader(), "requests", "deny", f.request.ID.String())
	require.NoError(t, err)

	after, err := f.app.LedgerSvc.GetAccount(ctx, f.customer.ID)
	require.NoError(t, err)
	assert.Equal(t, before.Points+100, after.Points)

	alerts, err := f.app.AlertSvc.ListUnread(ctx, f.customer.ID)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, domain.AlertKindPixInvalid, alerts[0].Kind)
}

func TestRequestsDecide_BadID(t *testing.T) {
	f := newFixture(t, true)

	_, _, err := execute(f.loader(), "requests", "approve", "not-a-uuid")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
