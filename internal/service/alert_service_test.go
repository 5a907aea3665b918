package service

import (
	"context"
	"testing"
	"time"

	"token-ledger/internal/core/domain"
	"token-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlertService_RaiseAndListUnread(t *testing.T) {
	e := newTestEngine(t, fixedRandom(0))
	acc := e.seedAccount(t, "alice", nil)
	other := e.seedAccount(t, "bob", nil)
	ctx := context.Background()

	first, err := e.alerts.Raise(ctx, acc.ID, domain.AlertKindTokenSold, "first")
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	_, err = e.alerts.Raise(ctx, acc.ID, domain.AlertKindExchangeApproved, "second")
	require.NoError(t, err)
	_, err = e.alerts.Raise(ctx, other.ID, domain.AlertKindPixInvalid, "not yours")
	require.NoError(t, err)

	unread := e.unreadOf(t, acc.ID)
	require.Len(t, unread, 2)
	assert.Equal(t, first.ID, unread[0].ID, "oldest first")
	assert.Equal(t, "second", unread[1].Message)

	_, err = e.alerts.Raise(ctx, uuid.New(), domain.AlertKindTokenSold, "nobody")
	assert.True(t, apperror.HasCode(err, apperror.CodeNotFound))
}

func TestAlertService_MarkRead(t *testing.T) {
	e := newTestEngine(t, fixedRandom(0))
	acc := e.seedAccount(t, "alice", nil)
	other := e.seedAccount(t, "bob", nil)
	ctx := context.Background()

	alert, err := e.alerts.Raise(ctx, acc.ID, domain.AlertKindTokenSold, "sold")
	require.NoError(t, err)

	err = e.alerts.MarkRead(ctx, other.ID, alert.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeNotFound), "foreign alerts are invisible")
	assert.Len(t, e.unreadOf(t, acc.ID), 1)

	require.NoError(t, e.alerts.MarkRead(ctx, acc.ID, alert.ID))
	assert.Empty(t, e.unreadOf(t, acc.ID))

	require.NoError(t, e.alerts.MarkRead(ctx, acc.ID, alert.ID), "marking twice is a no-op")

	err = e.alerts.MarkRead(ctx, acc.ID, uuid.New())
	assert.True(t, apperror.HasCode(err, apperror.CodeNotFound))
}

func TestAlertService_MarkAllRead(t *testing.T) {
	e := newTestEngine(t, fixedRandom(0))
	acc := e.seedAccount(t, "alice", nil)
	other := e.seedAccount(t, "bob", nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := e.alerts.Raise(ctx, acc.ID, domain.AlertKindTokenSold, "sold")
		require.NoError(t, err)
	}
	_, err := e.alerts.Raise(ctx, other.ID, domain.AlertKindTokenSold, "sold")
	require.NoError(t, err)

	n, err := e.alerts.MarkAllRead(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Empty(t, e.unreadOf(t, acc.ID))
	assert.Len(t, e.unreadOf(t, other.ID), 1)

	n, err = e.alerts.MarkAllRead(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
