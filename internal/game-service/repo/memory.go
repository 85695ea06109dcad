package repo

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/radieske/rps-wager-platform/internal/game-service/domain"
)

// Memory é um Store em processo, usado em ambiente local e nos testes.
// Transações são serializadas por um único mutex e desfeitas por um log de undo.
type Memory struct {
	mu sync.RWMutex

	nextAccount int64
	nextMatch   int64
	nextEntry   int64

	accounts  map[int64]*domain.Account
	names     map[string]int64
	matches   map[int64]*domain.Match
	openRooms map[string]int64
	entries   []domain.LedgerEntry

	now func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		accounts:  make(map[int64]*domain.Account),
		names:     make(map[string]int64),
		matches:   make(map[int64]*domain.Match),
		openRooms: make(map[string]int64),
		now:       time.Now,
	}
}

func (m *Memory) InTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTx{m: m}
	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

func (m *Memory) Ping(ctx context.Context) error { return ctx.Err() }

func (m *Memory) Account(_ context.Context, id int64) (*domain.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, fmt.Errorf("account %d: %w", id, domain.ErrNotFound)
	}
	cp := *a
	return &cp, nil
}

func (m *Memory) Match(_ context.Context, id int64) (*domain.Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mt, ok := m.matches[id]
	if !ok {
		return nil, fmt.Errorf("match %d: %w", id, domain.ErrNotFound)
	}
	return cloneMatch(mt), nil
}

func (m *Memory) OpenMatches(_ context.Context) ([]domain.OpenMatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	open := make([]*domain.Match, 0, len(m.openRooms))
	for _, id := range m.openRooms {
		open = append(open, m.matches[id])
	}
	sort.Slice(open, func(i, j int) bool { return open[i].ID < open[j].ID })

	out := make([]domain.OpenMatch, 0, len(open))
	for _, mt := range open {
		out = append(out, domain.OpenMatch{RoomName: mt.RoomName, Bet: mt.Bet, IsWaiting: mt.PlayerTwoID == nil})
	}
	return out, nil
}

func (m *Memory) LedgerEntries(_ context.Context, accountID int64, limit int) ([]domain.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []domain.LedgerEntry{}
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		e := m.entries[i]
		if e.ToAccountID == accountID || (e.FromAccountID != nil && *e.FromAccountID == accountID) {
			out = append(out, e)
		}
	}
	return out, nil
}

// memTx aplica as mudanças direto no Memory e guarda a operação inversa
type memTx struct {
	m    *Memory
	undo []func()
}

func (t *memTx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
}

func (t *memTx) InsertAccount(_ context.Context, displayName string) (*domain.Account, error) {
	m := t.m
	if _, ok := m.names[displayName]; ok {
		return nil, fmt.Errorf("display name %q already registered: %w", displayName, domain.ErrConflict)
	}
	m.nextAccount++
	now := m.now()
	a := &domain.Account{ID: m.nextAccount, DisplayName: displayName, Balance: decimal.Zero, CreatedAt: now, UpdatedAt: now}
	m.accounts[a.ID] = a
	m.names[displayName] = a.ID
	t.undo = append(t.undo, func() {
		delete(m.accounts, a.ID)
		delete(m.names, displayName)
	})
	cp := *a
	return &cp, nil
}

func (t *memTx) LockAccounts(_ context.Context, ids ...int64) (map[int64]*domain.Account, error) {
	out := make(map[int64]*domain.Account, len(ids))
	for _, id := range sortedUnique(ids) {
		a, ok := t.m.accounts[id]
		if !ok {
			return nil, fmt.Errorf("account %d: %w", id, domain.ErrNotFound)
		}
		cp := *a
		out[id] = &cp
	}
	return out, nil
}

func (t *memTx) SetBalance(_ context.Context, accountID int64, balance decimal.Decimal) error {
	a, ok := t.m.accounts[accountID]
	if !ok {
		return fmt.Errorf("account %d: %w", accountID, domain.ErrNotFound)
	}
	prevBalance, prevUpdated := a.Balance, a.UpdatedAt
	a.Balance = balance
	a.UpdatedAt = t.m.now()
	t.undo = append(t.undo, func() {
		a.Balance = prevBalance
		a.UpdatedAt = prevUpdated
	})
	return nil
}

func (t *memTx) AppendEntry(_ context.Context, e *domain.LedgerEntry) (int64, error) {
	m := t.m
	m.nextEntry++
	e.ID = m.nextEntry
	e.CreatedAt = m.now()
	m.entries = append(m.entries, *e)
	n := len(m.entries) - 1
	t.undo = append(t.undo, func() { m.entries = m.entries[:n] })
	return e.ID, nil
}

func (t *memTx) InsertMatch(_ context.Context, mt *domain.Match) (int64, error) {
	m := t.m
	if _, ok := m.openRooms[mt.RoomName]; ok {
		return 0, fmt.Errorf("room %q already has an open match: %w", mt.RoomName, domain.ErrConflict)
	}
	m.nextMatch++
	now := m.now()
	mt.ID = m.nextMatch
	mt.CreatedAt, mt.UpdatedAt = now, now
	m.matches[mt.ID] = cloneMatch(mt)
	m.openRooms[mt.RoomName] = mt.ID
	t.undo = append(t.undo, func() {
		delete(m.matches, mt.ID)
		delete(m.openRooms, mt.RoomName)
	})
	return mt.ID, nil
}

func (t *memTx) LockOpenMatch(_ context.Context, room string) (*domain.Match, error) {
	id, ok := t.m.openRooms[room]
	if !ok {
		return nil, fmt.Errorf("open room %q: %w", room, domain.ErrNotFound)
	}
	return cloneMatch(t.m.matches[id]), nil
}

func (t *memTx) UpdateMatch(_ context.Context, mt *domain.Match) error {
	m := t.m
	prev, ok := m.matches[mt.ID]
	if !ok {
		return fmt.Errorf("match %d: %w", mt.ID, domain.ErrNotFound)
	}
	if prev.Ended {
		return fmt.Errorf("match %d already ended: %w", mt.ID, domain.ErrConflict)
	}
	m.matches[mt.ID] = cloneMatch(mt)
	if mt.Ended {
		delete(m.openRooms, mt.RoomName)
	}
	t.undo = append(t.undo, func() {
		m.matches[prev.ID] = prev
		m.openRooms[prev.RoomName] = prev.ID
	})
	return nil
}

func cloneMatch(src *domain.Match) *domain.Match {
	cp := *src
	cp.PlayerTwoID = cloneID(src.PlayerTwoID)
	cp.WinnerID = cloneID(src.WinnerID)
	if src.PlayerOneMove != nil {
		mv := *src.PlayerOneMove
		cp.PlayerOneMove = &mv
	}
	if src.PlayerTwoMove != nil {
		mv := *src.PlayerTwoMove
		cp.PlayerTwoMove = &mv
	}
	return &cp
}

func cloneID(v *int64) *int64 {
	if v == nil {
		return nil
	}
	id := *v
	return &id
}
