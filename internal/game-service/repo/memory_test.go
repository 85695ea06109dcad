package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/rps-wager-platform/internal/game-service/domain"
)

func TestMemory_RollbackUndoesEveryWrite(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	var accountID int64
	require.NoError(t, m.InTx(ctx, func(tx Tx) error {
		a, err := tx.InsertAccount(ctx, "alice")
		accountID = a.ID
		return err
	}))

	boom := errors.New("boom")
	err := m.InTx(ctx, func(tx Tx) error {
		if err := tx.SetBalance(ctx, accountID, decimal.NewFromInt(50)); err != nil {
			return err
		}
		if _, err := tx.AppendEntry(ctx, &domain.LedgerEntry{ToAccountID: accountID, Amount: decimal.NewFromInt(50)}); err != nil {
			return err
		}
		if _, err := tx.InsertMatch(ctx, &domain.Match{RoomName: "arena", Bet: decimal.NewFromInt(1), PlayerOneID: accountID}); err != nil {
			return err
		}
		if _, err := tx.InsertAccount(ctx, "bob"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	a, err := m.Account(ctx, accountID)
	require.NoError(t, err)
	assert.True(t, a.Balance.IsZero())

	entries, err := m.LedgerEntries(ctx, accountID, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)

	open, err := m.OpenMatches(ctx)
	require.NoError(t, err)
	assert.Empty(t, open)

	require.NoError(t, m.InTx(ctx, func(tx Tx) error {
		_, err := tx.InsertAccount(ctx, "bob")
		return err
	}), "rolled back name is free again")
}

func TestMemory_EndedMatchFreesRoom(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	mt := &domain.Match{RoomName: "arena", Bet: decimal.NewFromInt(1), PlayerOneID: 1}
	require.NoError(t, m.InTx(ctx, func(tx Tx) error {
		_, err := tx.InsertMatch(ctx, mt)
		return err
	}))

	err := m.InTx(ctx, func(tx Tx) error {
		_, err := tx.InsertMatch(ctx, &domain.Match{RoomName: "arena", Bet: decimal.NewFromInt(1), PlayerOneID: 2})
		return err
	})
	assert.ErrorIs(t, err, domain.ErrConflict)

	require.NoError(t, m.InTx(ctx, func(tx Tx) error {
		locked, err := tx.LockOpenMatch(ctx, "arena")
		if err != nil {
			return err
		}
		locked.Ended = true
		return tx.UpdateMatch(ctx, locked)
	}))

	require.NoError(t, m.InTx(ctx, func(tx Tx) error {
		_, err := tx.InsertMatch(ctx, &domain.Match{RoomName: "arena", Bet: decimal.NewFromInt(1), PlayerOneID: 2})
		return err
	}), "room name is reusable once the match ended")

	old, err := m.Match(ctx, mt.ID)
	require.NoError(t, err)
	assert.True(t, old.Ended)
}
