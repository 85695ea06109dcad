package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/radieske/rps-wager-platform/internal/game-service/domain"
)

// código SQLSTATE de violação de unicidade
const uniqueViolation = "23505"

const matchColumns = `id, room_name, bet, player_one_id, player_two_id, player_one_move, player_two_move,
	ended, winner_id, created_at, updated_at`

// Postgres implementa o Store sobre database/sql + lib/pq.
// A serialização por partida e por conta vem de SELECT ... FOR UPDATE dentro da transação.
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// InTx abre uma transação, executa fn e faz commit; qualquer erro desfaz tudo
func (p *Postgres) InTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *Postgres) Account(ctx context.Context, id int64) (*domain.Account, error) {
	a, err := scanAccount(p.db.QueryRowContext(ctx,
		`SELECT id, display_name, balance, created_at, updated_at FROM accounts WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %d: %w", id, domain.ErrNotFound)
	}
	return a, err
}

func (p *Postgres) Match(ctx context.Context, id int64) (*domain.Match, error) {
	m, err := scanMatch(p.db.QueryRowContext(ctx, `SELECT `+matchColumns+` FROM matches WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("match %d: %w", id, domain.ErrNotFound)
	}
	return m, err
}

// OpenMatches lista as partidas ainda não encerradas
func (p *Postgres) OpenMatches(ctx context.Context) ([]domain.OpenMatch, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT room_name, bet, player_two_id IS NULL FROM matches WHERE NOT ended ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.OpenMatch{}
	for rows.Next() {
		var om domain.OpenMatch
		if err := rows.Scan(&om.RoomName, &om.Bet, &om.IsWaiting); err != nil {
			return nil, err
		}
		out = append(out, om)
	}
	return out, rows.Err()
}

// LedgerEntries retorna os lançamentos mais recentes em que a conta aparece
func (p *Postgres) LedgerEntries(ctx context.Context, accountID int64, limit int) ([]domain.LedgerEntry, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, from_account_id, to_account_id, amount, category, match_id, created_at
		FROM ledger_entries
		WHERE from_account_id=$1 OR to_account_id=$1
		ORDER BY id DESC
		LIMIT $2`, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.LedgerEntry{}
	for rows.Next() {
		var (
			e         domain.LedgerEntry
			from, mid sql.NullInt64
			category  string
		)
		if err := rows.Scan(&e.ID, &from, &e.ToAccountID, &e.Amount, &category, &mid, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.FromAccountID = nullableID(from)
		e.MatchID = nullableID(mid)
		e.Category = domain.Category(category)
		out = append(out, e)
	}
	return out, rows.Err()
}

// pgTx implementa Tx sobre uma *sql.Tx
type pgTx struct{ tx *sql.Tx }

func (t *pgTx) InsertAccount(ctx context.Context, displayName string) (*domain.Account, error) {
	a := &domain.Account{DisplayName: displayName, Balance: decimal.Zero}
	err := t.tx.QueryRowContext(ctx,
		`INSERT INTO accounts (display_name, balance) VALUES ($1, 0) RETURNING id, created_at, updated_at`,
		displayName).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("display name %q already registered: %w", displayName, domain.ErrConflict)
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (t *pgTx) LockAccounts(ctx context.Context, ids ...int64) (map[int64]*domain.Account, error) {
	out := make(map[int64]*domain.Account, len(ids))
	for _, id := range sortedUnique(ids) {
		a, err := scanAccount(t.tx.QueryRowContext(ctx,
			`SELECT id, display_name, balance, created_at, updated_at FROM accounts WHERE id=$1 FOR UPDATE`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account %d: %w", id, domain.ErrNotFound)
		}
		if err != nil {
			return nil, err
		}
		out[id] = a
	}
	return out, nil
}

func (t *pgTx) SetBalance(ctx context.Context, accountID int64, balance decimal.Decimal) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE accounts SET balance=$1, updated_at=NOW() WHERE id=$2`, balance, accountID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return fmt.Errorf("account %d: %w", accountID, domain.ErrNotFound)
	}
	return nil
}

func (t *pgTx) AppendEntry(ctx context.Context, e *domain.LedgerEntry) (int64, error) {
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO ledger_entries (from_account_id, to_account_id, amount, category, match_id)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id, created_at`,
		nullInt(e.FromAccountID), e.ToAccountID, e.Amount, string(e.Category), nullInt(e.MatchID),
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return 0, err
	}
	return e.ID, nil
}

// InsertMatch depende do índice único parcial (room_name WHERE NOT ended)
func (t *pgTx) InsertMatch(ctx context.Context, m *domain.Match) (int64, error) {
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO matches (room_name, bet, player_one_id)
		VALUES ($1,$2,$3)
		RETURNING id, created_at, updated_at`,
		m.RoomName, m.Bet, m.PlayerOneID,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if isUniqueViolation(err) {
		return 0, fmt.Errorf("room %q already has an open match: %w", m.RoomName, domain.ErrConflict)
	}
	if err != nil {
		return 0, err
	}
	return m.ID, nil
}

func (t *pgTx) LockOpenMatch(ctx context.Context, room string) (*domain.Match, error) {
	m, err := scanMatch(t.tx.QueryRowContext(ctx,
		`SELECT `+matchColumns+` FROM matches WHERE room_name=$1 AND NOT ended FOR UPDATE`, room))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("open room %q: %w", room, domain.ErrNotFound)
	}
	return m, err
}

// UpdateMatch nunca altera uma partida já encerrada
func (t *pgTx) UpdateMatch(ctx context.Context, m *domain.Match) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE matches
		SET player_two_id=$1, player_one_move=$2, player_two_move=$3, ended=$4, winner_id=$5, updated_at=$6
		WHERE id=$7 AND NOT ended`,
		nullInt(m.PlayerTwoID), nullMove(m.PlayerOneMove), nullMove(m.PlayerTwoMove),
		m.Ended, nullInt(m.WinnerID), m.UpdatedAt, m.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return fmt.Errorf("match %d already ended: %w", m.ID, domain.ErrConflict)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*domain.Account, error) {
	var a domain.Account
	if err := row.Scan(&a.ID, &a.DisplayName, &a.Balance, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func scanMatch(row rowScanner) (*domain.Match, error) {
	var (
		m                domain.Match
		p2, winner       sql.NullInt64
		moveOne, moveTwo sql.NullString
	)
	if err := row.Scan(&m.ID, &m.RoomName, &m.Bet, &m.PlayerOneID, &p2, &moveOne, &moveTwo,
		&m.Ended, &winner, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	m.PlayerTwoID = nullableID(p2)
	m.WinnerID = nullableID(winner)

	var err error
	if m.PlayerOneMove, err = parseNullMove(moveOne); err != nil {
		return nil, err
	}
	if m.PlayerTwoMove, err = parseNullMove(moveTwo); err != nil {
		return nil, err
	}
	return &m, nil
}

func parseNullMove(s sql.NullString) (*domain.Move, error) {
	if !s.Valid {
		return nil, nil
	}
	mv, err := domain.ParseMove(s.String)
	if err != nil {
		return nil, fmt.Errorf("stored move: %v", err)
	}
	return &mv, nil
}

func nullMove(m *domain.Move) sql.NullString {
	if m == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: m.String(), Valid: true}
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullableID(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	id := v.Int64
	return &id
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
