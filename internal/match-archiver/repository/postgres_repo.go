package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/radieske/rps-wager-platform/pkg/contracts/events"
)

// PostgresRepo persiste o histórico de eventos de partida em match_event_log
type PostgresRepo struct {
	DB *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{DB: db}
}

// Archive grava o evento uma única vez por event_id; false indica reentrega já arquivada
func (r *PostgresRepo) Archive(ctx context.Context, e events.MatchEvent) (bool, error) {
	const q = `
		INSERT INTO match_event_log
		  (event_id, event_type, room_name, match_id, message, occurred_at)
		VALUES
		  ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (event_id) DO NOTHING
	`
	res, err := r.DB.ExecContext(ctx, q,
		e.EventID, e.Type, e.Room, e.MatchID, e.Message, time.UnixMilli(e.TsUnixMs).UTC(),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
