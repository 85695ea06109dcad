package repo

import (
	"context"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/radieske/rps-wager-platform/internal/game-service/domain"
)

// Store dá acesso transacional a contas, partidas e lançamentos do ledger.
// Toda transição de estado passa por InTx: ou tudo é aplicado, ou nada.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error

	Account(ctx context.Context, id int64) (*domain.Account, error)
	Match(ctx context.Context, id int64) (*domain.Match, error)
	OpenMatches(ctx context.Context) ([]domain.OpenMatch, error)
	LedgerEntries(ctx context.Context, accountID int64, limit int) ([]domain.LedgerEntry, error)
	Ping(ctx context.Context) error
}

// Tx é a unidade de trabalho aberta por Store.InTx.
// Os métodos Lock* serializam o acesso às linhas até o fim da transação.
type Tx interface {
	InsertAccount(ctx context.Context, displayName string) (*domain.Account, error)
	// LockAccounts bloqueia as contas em ordem crescente de id (evita deadlock)
	LockAccounts(ctx context.Context, ids ...int64) (map[int64]*domain.Account, error)
	SetBalance(ctx context.Context, accountID int64, balance decimal.Decimal) error
	AppendEntry(ctx context.Context, e *domain.LedgerEntry) (int64, error)

	InsertMatch(ctx context.Context, m *domain.Match) (int64, error)
	// LockOpenMatch bloqueia a partida não encerrada da sala
	LockOpenMatch(ctx context.Context, room string) (*domain.Match, error)
	UpdateMatch(ctx context.Context, m *domain.Match) error
}

// sortedUnique devolve os ids sem repetição em ordem crescente
func sortedUnique(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
