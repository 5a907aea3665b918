package cli

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"token-ledger/internal/adapter/http/dto"
	"token-ledger/internal/core/domain"
	"token-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func transactionsOf(accountID uuid.UUID, kind domain.EntryKind) ports.TransactionListParams {
	return ports.TransactionListParams{AccountID: &accountID, Kind: &kind}
}

func TestTransactionsExport_CSV(t *testing.T) {
	f := newFixture(t, true)

	out, _, err := execute(f.loader(), "transactions", "export", "--period", "day", "--account", f.customer.ID.String())
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3, "header, token purchase, credit purchase")
	assert.Equal(t, []string{"id", "account_id", "kind", "amount", "description", "created_at"}, rows[0])
	assert.Equal(t, string(domain.EntryKindTokenPurchase), rows[1][2])
	assert.Equal(t, string(domain.EntryKindCreditPurchase), rows[2][2])
}

func TestTransactionsExport_KindFilterToFile(t *testing.T) {
	f := newFixture(t, true)
	path := filepath.Join(t.TempDir(), "credits.csv")

	out, _, err := execute(f.loader(), "transactions", "export", "--kind", "credit_purchase", "-o", path)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "100", rows[1][3])
}

func TestTransactionsExport_JSON(t *testing.T) {
	f := newFixture(t, true)

	out, _, err := execute(f.loader(), "transactions", "export", "--format", "json")
	require.NoError(t, err)

	var list dto.TransactionListResponse
	decodeJSON(t, out, &list)
	assert.Equal(t, 2, list.Total)
}

func TestTransactionsExport_InvalidFlags(t *testing.T) {
	f := newFixture(t, true)

	for _, args := range [][]string{
		{"--period", "year"},
		{"--account", "nope"},
		{"--kind", "GIFT"},
	} {
		_, _, err := execute(f.loader(), append([]string{"transactions", "export"}, args...)...)
		assert.Equal(t, ExitCommandError, GetExitCode(err), args)
	}
}

func TestStats(t *testing.T) {
	f := newFixture(t, true)

	out, _, err := execute(f.loader(), "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "CREDIT_PURCHASE")
	assert.Contains(t, out, "2 entr(ies) in period all")

	out, _, err = execute(f.loader(), "stats", "--format", "json", "--account", f.customer.ID.String())
	require.NoError(t, err)
	var stats dto.StatsResponse
	decodeJSON(t, out, &stats)
	assert.Equal(t, 1, stats.ByKind[string(domain.EntryKindTokenPurchase)].Count)
}
