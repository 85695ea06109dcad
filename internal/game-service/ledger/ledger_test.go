package ledger

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/rps-wager-platform/internal/game-service/domain"
	"github.com/radieske/rps-wager-platform/internal/game-service/repo"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newLedger(t *testing.T) (*Ledger, *repo.Memory) {
	t.Helper()
	store := repo.NewMemory()
	return New(store, nil, nil, decimal.NewFromInt(1000)), store
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	l, _ := newLedger(t)

	id, err := l.Register(ctx, "  alice ")
	require.NoError(t, err)

	bal, err := l.Balance(ctx, id)
	require.NoError(t, err)
	assert.True(t, bal.Equal(dec("1000")), "got %s", bal)

	entries, err := l.Entries(ctx, id, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Nil(t, entries[0].FromAccountID)
	assert.Equal(t, domain.CategoryGrant, entries[0].Category)

	_, err = l.Register(ctx, "alice")
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = l.Register(ctx, "   ")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestPeerTransfer(t *testing.T) {
	ctx := context.Background()
	l, _ := newLedger(t)
	alice, _ := l.Register(ctx, "alice")
	bob, _ := l.Register(ctx, "bob")

	require.NoError(t, l.PeerTransfer(ctx, alice, bob, dec("250.50")))

	a, _ := l.Balance(ctx, alice)
	b, _ := l.Balance(ctx, bob)
	assert.True(t, a.Equal(dec("749.50")), "alice %s", a)
	assert.True(t, b.Equal(dec("1250.50")), "bob %s", b)

	entries, err := l.Entries(ctx, bob, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.CategoryPeerTransfer, entries[0].Category)
	assert.Equal(t, alice, *entries[0].FromAccountID)

	tests := []struct {
		name     string
		from, to int64
		amount   string
		want     error
	}{
		{"overdraft", alice, bob, "749.51", domain.ErrInsufficientFunds},
		{"same account", alice, alice, "1", domain.ErrInvalidArgument},
		{"zero", alice, bob, "0", domain.ErrInvalidArgument},
		{"negative", alice, bob, "-5", domain.ErrInvalidArgument},
		{"sub-cent", alice, bob, "0.001", domain.ErrInvalidArgument},
		{"missing destination", alice, 999, "1", domain.ErrNotFound},
		{"missing source", 999, bob, "1", domain.ErrNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := l.PeerTransfer(ctx, tc.from, tc.to, dec(tc.amount))
			assert.ErrorIs(t, err, tc.want)
		})
	}

	a, _ = l.Balance(ctx, alice)
	assert.True(t, a.Equal(dec("749.50")), "failed transfers must not move funds")
}

func TestPeerTransfer_ConcurrentDebitsNeverOverdraw(t *testing.T) {
	ctx := context.Background()
	l, _ := newLedger(t)
	src, _ := l.Register(ctx, "source")
	dsts := make([]int64, 4)
	for i := range dsts {
		dsts[i], _ = l.Register(ctx, string(rune('a'+i)))
	}

	var ok, short atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := l.PeerTransfer(ctx, src, dsts[i%len(dsts)], dec("100"))
			switch {
			case err == nil:
				ok.Add(1)
			case assert.ErrorIs(t, err, domain.ErrInsufficientFunds):
				short.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 10, ok.Load())
	assert.EqualValues(t, 30, short.Load())

	bal, _ := l.Balance(ctx, src)
	assert.True(t, bal.IsZero(), "source ended with %s", bal)

	total := decimal.Zero
	for _, id := range append(dsts, src) {
		b, _ := l.Balance(ctx, id)
		total = total.Add(b)
	}
	assert.True(t, total.Equal(dec("5000")), "sum of balances changed: %s", total)
}

func TestSettle(t *testing.T) {
	ctx := context.Background()
	l, store := newLedger(t)
	p1, _ := l.Register(ctx, "p1")
	p2, _ := l.Register(ctx, "p2")

	m := &domain.Match{ID: 42, Bet: dec("100"), PlayerOneID: p1, PlayerTwoID: &p2}
	require.NoError(t, store.InTx(ctx, func(tx repo.Tx) error { return l.Settle(ctx, tx, m, p1) }))

	b1, _ := l.Balance(ctx, p1)
	b2, _ := l.Balance(ctx, p2)
	assert.True(t, b1.Equal(dec("1100")), "winner %s", b1)
	assert.True(t, b2.Equal(dec("900")), "loser %s", b2)

	entries, err := l.Entries(ctx, p1, 10)
	require.NoError(t, err)
	settled := 0
	for _, e := range entries {
		if e.Category == domain.CategoryGameSettlement {
			settled++
			assert.Equal(t, p1, e.ToAccountID)
			require.NotNil(t, e.MatchID)
			assert.Equal(t, int64(42), *e.MatchID)
		}
	}
	assert.Equal(t, 2, settled)
}

func TestSettle_ShortfallRollsBack(t *testing.T) {
	ctx := context.Background()
	l, store := newLedger(t)
	p1, _ := l.Register(ctx, "p1")
	p2, _ := l.Register(ctx, "p2")
	sink, _ := l.Register(ctx, "sink")
	require.NoError(t, l.PeerTransfer(ctx, p2, sink, dec("950")))

	m := &domain.Match{ID: 7, Bet: dec("100"), PlayerOneID: p1, PlayerTwoID: &p2}
	err := store.InTx(ctx, func(tx repo.Tx) error { return l.Settle(ctx, tx, m, p1) })
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	b1, _ := l.Balance(ctx, p1)
	b2, _ := l.Balance(ctx, p2)
	assert.True(t, b1.Equal(dec("1000")))
	assert.True(t, b2.Equal(dec("50")))

	entries, _ := l.Entries(ctx, p1, 10)
	assert.Len(t, entries, 1, "only the grant")
}

func TestEntries_UnknownAccount(t *testing.T) {
	l, _ := newLedger(t)
	_, err := l.Entries(context.Background(), 77, 10)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = l.Balance(context.Background(), 0)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}
