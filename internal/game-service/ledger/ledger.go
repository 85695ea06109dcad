package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/rps-wager-platform/internal/game-service/domain"
	"github.com/radieske/rps-wager-platform/internal/game-service/repo"
	"github.com/radieske/rps-wager-platform/internal/shared/metrics"
)

// DefaultEntriesLimit é usado quando o chamador não informa limite
const DefaultEntriesLimit = 50

// MaxEntriesLimit limita a leitura do extrato
const MaxEntriesLimit = 500

// Ledger é o único dono da mutação de saldo.
// Cada mudança de saldo corresponde a exatamente um lançamento na mesma transação.
type Ledger struct {
	store   repo.Store
	log     *zap.Logger
	metrics *metrics.Game
	grant   decimal.Decimal
}

// New cria o ledger; initialGrant é o crédito de boas-vindas de cada conta nova (zero desliga)
func New(store repo.Store, log *zap.Logger, m *metrics.Game, initialGrant decimal.Decimal) *Ledger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{store: store, log: log, metrics: m, grant: initialGrant}
}

// Register cria a conta e credita o saldo inicial numa única transação
func (l *Ledger) Register(ctx context.Context, displayName string) (int64, error) {
	name, err := domain.NormalizeDisplayName(displayName)
	if err != nil {
		return 0, err
	}

	var id int64
	err = l.store.InTx(ctx, func(tx repo.Tx) error {
		acc, err := tx.InsertAccount(ctx, name)
		if err != nil {
			return err
		}
		id = acc.ID
		if !l.grant.IsPositive() {
			return nil
		}
		_, err = l.Transfer(ctx, tx, nil, acc.ID, l.grant, domain.CategoryGrant, nil)
		return err
	})
	if err != nil {
		l.log.Debug("register rejected", zap.String("display_name", name), zap.Error(err))
		return 0, err
	}

	if l.grant.IsPositive() {
		l.metrics.Transfers(string(domain.CategoryGrant), 1)
	}
	l.log.Info("account registered", zap.Int64("account_id", id), zap.String("display_name", name))
	return id, nil
}

// Transfer debita from (quando presente), credita to e grava o lançamento dentro de tx.
// O saldo de from é conferido com a linha bloqueada, então dois débitos concorrentes
// nunca passam pela mesma checagem. from == to confere fundos e registra sem mover saldo.
func (l *Ledger) Transfer(ctx context.Context, tx repo.Tx, from *int64, to int64, amount decimal.Decimal,
	category domain.Category, matchID *int64) (int64, error) {
	if err := domain.ValidateAmount(amount); err != nil {
		return 0, err
	}

	ids := []int64{to}
	if from != nil {
		ids = append(ids, *from)
	}
	accounts, err := tx.LockAccounts(ctx, ids...)
	if err != nil {
		return 0, err
	}

	dst := accounts[to]
	if from != nil {
		src := accounts[*from]
		if src.Balance.LessThan(amount) {
			return 0, fmt.Errorf("account %d holds %s, needs %s: %w", src.ID, src.Balance, amount, domain.ErrInsufficientFunds)
		}
		if src.ID != dst.ID {
			if err := tx.SetBalance(ctx, src.ID, src.Balance.Sub(amount)); err != nil {
				return 0, err
			}
			if err := tx.SetBalance(ctx, dst.ID, dst.Balance.Add(amount)); err != nil {
				return 0, err
			}
		}
	} else if err := tx.SetBalance(ctx, dst.ID, dst.Balance.Add(amount)); err != nil {
		return 0, err
	}

	return tx.AppendEntry(ctx, &domain.LedgerEntry{
		FromAccountID: from,
		ToAccountID:   to,
		Amount:        amount,
		Category:      category,
		MatchID:       matchID,
	})
}

// PeerTransfer move saldo diretamente entre dois usuários
func (l *Ledger) PeerTransfer(ctx context.Context, from, to int64, amount decimal.Decimal) error {
	if err := domain.ValidateAccountID(from); err != nil {
		return err
	}
	if err := domain.ValidateAccountID(to); err != nil {
		return err
	}
	if from == to {
		return fmt.Errorf("cannot transfer to the same account: %w", domain.ErrInvalidArgument)
	}

	var entryID int64
	err := l.store.InTx(ctx, func(tx repo.Tx) error {
		var err error
		entryID, err = l.Transfer(ctx, tx, &from, to, amount, domain.CategoryPeerTransfer, nil)
		return err
	})
	if err != nil {
		l.log.Debug("peer transfer rejected",
			zap.Int64("from", from), zap.Int64("to", to), zap.String("amount", amount.String()), zap.Error(err))
		return err
	}

	l.metrics.Transfers(string(domain.CategoryPeerTransfer), 1)
	l.log.Info("peer transfer",
		zap.Int64("entry_id", entryID), zap.Int64("from", from), zap.Int64("to", to), zap.String("amount", amount.String()))
	return nil
}

// CheckStakes confere, com as duas contas bloqueadas, que cada jogador ainda cobre a aposta.
// Roda antes de a partida ser resolvida, empate incluído, e o erro não diz qual conta falhou.
func (l *Ledger) CheckStakes(ctx context.Context, tx repo.Tx, m *domain.Match) error {
	if m.PlayerTwoID == nil {
		return fmt.Errorf("match %d has no second player: %w", m.ID, domain.ErrConflict)
	}
	accounts, err := tx.LockAccounts(ctx, m.PlayerOneID, *m.PlayerTwoID)
	if err != nil {
		return err
	}
	for _, acc := range accounts {
		if acc.Balance.LessThan(m.Bet) {
			return fmt.Errorf("match %d: stakes not covered: %w", m.ID, domain.ErrInsufficientFunds)
		}
	}
	return nil
}

// Settle paga a aposta de uma partida com vencedor: um lançamento por jogador, ambos para o vencedor.
// Os dois saldos são conferidos antes de qualquer débito; falta de saldo devolve ErrInsufficientFunds
// e o chamador deve desfazer a transação inteira.
func (l *Ledger) Settle(ctx context.Context, tx repo.Tx, m *domain.Match, winnerID int64) error {
	if err := l.CheckStakes(ctx, tx, m); err != nil {
		return err
	}

	matchID := m.ID
	for _, id := range []int64{m.PlayerOneID, *m.PlayerTwoID} {
		from := id
		if _, err := l.Transfer(ctx, tx, &from, winnerID, m.Bet, domain.CategoryGameSettlement, &matchID); err != nil {
			return fmt.Errorf("settlement of match %d: %w", m.ID, err)
		}
	}
	return nil
}

// Balance retorna o saldo atual da conta
func (l *Ledger) Balance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	if err := domain.ValidateAccountID(accountID); err != nil {
		return decimal.Zero, err
	}
	acc, err := l.store.Account(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	return acc.Balance, nil
}

// Entries retorna o extrato mais recente da conta (entradas e saídas)
func (l *Ledger) Entries(ctx context.Context, accountID int64, limit int) ([]domain.LedgerEntry, error) {
	if err := domain.ValidateAccountID(accountID); err != nil {
		return nil, err
	}
	switch {
	case limit <= 0:
		limit = DefaultEntriesLimit
	case limit > MaxEntriesLimit:
		limit = MaxEntriesLimit
	}
	// garante NotFound para conta inexistente em vez de lista vazia
	if _, err := l.store.Account(ctx, accountID); err != nil {
		return nil, err
	}
	return l.store.LedgerEntries(ctx, accountID, limit)
}
