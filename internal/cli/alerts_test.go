package cli

import (
	"testing"

	"token-ledger/internal/adapter/http/dto"
	"token-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlertsRaiseAndList(t *testing.T) {
	f := newFixture(t, true)
	id := f.customer.ID.String()

	out, _, err := execute(f.loader(), "alerts", "raise", id, "--kind", "pix_invalid", "-m", "Check your Pix key")
	require.NoError(t, err)
	assert.Contains(t, out, "Raised PIX_INVALID alert")

	out, _, err = execute(f.loader(), "alerts", "list", id, "--format", "json")
	require.NoError(t, err)
	var items []dto.AlertResponse
	decodeJSON(t, out, &items)
	require.Len(t, items, 1)
	assert.Equal(t, "Check your Pix key", items[0].Message)
	assert.False(t, items[0].IsRead)
}

func TestAlertsRaise_UnknownAccount(t *testing.T) {
	f := newFixture(t, true)

	out, _, err := execute(f.loader(), "alerts", "raise", uuid.NewString(), "--kind", "TOKEN_SOLD", "-m", "hi", "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, apperror.CodeNotFound, decodeJSON(t, out, nil).Error.Code)
}

func TestAlertsRaise_InvalidInput(t *testing.T) {
	f := newFixture(t, true)
	id := f.customer.ID.String()

	_, _, err := execute(f.loader(), "alerts", "raise", id, "--kind", "BIRTHDAY", "-m", "hi")
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, _, err = execute(f.loader(), "alerts", "raise", id, "--kind", "TOKEN_SOLD", "-m", "  ")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
