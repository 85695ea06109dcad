package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// State é a fase da partida: Open -> Full -> Resolved
type State string

const (
	StateOpen     State = "Open"
	StateFull     State = "Full"
	StateResolved State = "Resolved"
)

// Match é o registro persistido de uma partida
// PlayerTwoID e as jogadas são write-once; depois de Ended nada muda
type Match struct {
	ID            int64
	RoomName      string
	Bet           decimal.Decimal
	PlayerOneID   int64
	PlayerTwoID   *int64
	PlayerOneMove *Move
	PlayerTwoMove *Move
	Ended         bool
	WinnerID      *int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// OpenMatch é a visão resumida usada na listagem de salas abertas
type OpenMatch struct {
	RoomName  string
	Bet       decimal.Decimal
	IsWaiting bool
}

func (m *Match) State() State {
	switch {
	case m.Ended:
		return StateResolved
	case m.PlayerTwoID == nil:
		return StateOpen
	default:
		return StateFull
	}
}

func (m *Match) IsPlayer(accountID int64) bool {
	return accountID == m.PlayerOneID || (m.PlayerTwoID != nil && *m.PlayerTwoID == accountID)
}

// Join ocupa a vaga do segundo jogador
func (m *Match) Join(accountID int64, now time.Time) error {
	if m.Ended {
		return fmt.Errorf("room %q already ended: %w", m.RoomName, ErrConflict)
	}
	if m.PlayerTwoID != nil {
		return fmt.Errorf("room %q is already full: %w", m.RoomName, ErrConflict)
	}
	if accountID == m.PlayerOneID {
		return fmt.Errorf("account %d cannot join its own room: %w", accountID, ErrConflict)
	}
	m.PlayerTwoID = &accountID
	m.UpdatedAt = now
	return nil
}

// RecordMove grava a jogada do participante; uma segunda jogada do mesmo jogador é conflito
func (m *Match) RecordMove(accountID int64, move Move, now time.Time) error {
	if !move.Valid() {
		return fmt.Errorf("unknown move %d: %w", int(move), ErrInvalidArgument)
	}
	if m.Ended {
		return fmt.Errorf("room %q already ended: %w", m.RoomName, ErrConflict)
	}
	if !m.IsPlayer(accountID) {
		return fmt.Errorf("account %d is not a player in room %q: %w", accountID, m.RoomName, ErrConflict)
	}
	if m.PlayerTwoID == nil {
		return fmt.Errorf("room %q is waiting for a second player: %w", m.RoomName, ErrConflict)
	}

	slot := &m.PlayerTwoMove
	if accountID == m.PlayerOneID {
		slot = &m.PlayerOneMove
	}
	if *slot != nil {
		return fmt.Errorf("account %d already moved in room %q: %w", accountID, m.RoomName, ErrConflict)
	}
	mv := move
	*slot = &mv
	m.UpdatedAt = now
	return nil
}

// BothMoved indica que a partida pode ser resolvida
func (m *Match) BothMoved() bool {
	return m.PlayerOneMove != nil && m.PlayerTwoMove != nil
}

// Resolve encerra a partida e registra o vencedor (nil em empate)
func (m *Match) Resolve(now time.Time) *int64 {
	if m.Ended || !m.BothMoved() {
		return nil
	}
	m.WinnerID = Winner(m.PlayerOneID, *m.PlayerTwoID, *m.PlayerOneMove, *m.PlayerTwoMove)
	m.Ended = true
	m.UpdatedAt = now
	return m.WinnerID
}
