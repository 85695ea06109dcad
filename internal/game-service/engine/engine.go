package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/rps-wager-platform/internal/game-service/domain"
	"github.com/radieske/rps-wager-platform/internal/game-service/events"
	"github.com/radieske/rps-wager-platform/internal/game-service/ledger"
	"github.com/radieske/rps-wager-platform/internal/game-service/repo"
	"github.com/radieske/rps-wager-platform/internal/shared/metrics"
	contracts "github.com/radieske/rps-wager-platform/pkg/contracts/events"
)

// emitTimeout limita a entrega de eventos depois do commit
const emitTimeout = 2 * time.Second

// Status é o resultado de MakeMove
type Status string

const (
	StatusWaiting  Status = "Waiting"
	StatusResolved Status = "Resolved"
)

// Result descreve o efeito de uma jogada; WinnerID é nil enquanto aguarda ou em empate
type Result struct {
	Status   Status
	WinnerID *int64
}

// Engine orquestra o ciclo de vida das partidas.
// Toda transição roda dentro de Store.InTx com a partida bloqueada, e os eventos
// só saem depois do commit, ainda dentro da seção da sala.
type Engine struct {
	store   repo.Store
	ledger  *ledger.Ledger
	sink    events.Sink
	log     *zap.Logger
	metrics *metrics.Game
	now     func() time.Time
	rooms   roomLocks
}

func New(store repo.Store, l *ledger.Ledger, sink events.Sink, log *zap.Logger, m *metrics.Game) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{store: store, ledger: l, sink: sink, log: log, metrics: m, now: time.Now}
}

// CreateMatch abre uma partida na sala; o saldo é só conferido, nada é debitado aqui
func (e *Engine) CreateMatch(ctx context.Context, accountID int64, bet decimal.Decimal, roomName string) (int64, error) {
	if err := domain.ValidateAccountID(accountID); err != nil {
		return 0, err
	}
	if err := domain.ValidateAmount(bet); err != nil {
		return 0, err
	}
	room, err := domain.NormalizeRoomName(roomName)
	if err != nil {
		return 0, err
	}

	m := &domain.Match{RoomName: room, Bet: bet, PlayerOneID: accountID}
	err = e.store.InTx(ctx, func(tx repo.Tx) error {
		accounts, err := tx.LockAccounts(ctx, accountID)
		if err != nil {
			return err
		}
		if bal := accounts[accountID].Balance; bal.LessThan(bet) {
			return fmt.Errorf("account %d holds %s, bet is %s: %w", accountID, bal, bet, domain.ErrInsufficientFunds)
		}
		_, err = tx.InsertMatch(ctx, m)
		return err
	})
	if err != nil {
		e.log.Debug("create match rejected", zap.String("room", room), zap.Int64("account_id", accountID), zap.Error(err))
		return 0, err
	}

	e.metrics.MatchCreated()
	e.log.Info("match created",
		zap.Int64("match_id", m.ID), zap.String("room", room), zap.Int64("account_id", accountID), zap.String("bet", bet.String()))
	return m.ID, nil
}

// JoinMatch ocupa a vaga do segundo jogador na partida aberta da sala
func (e *Engine) JoinMatch(ctx context.Context, roomName string, accountID int64) error {
	if err := domain.ValidateAccountID(accountID); err != nil {
		return err
	}
	room, err := domain.NormalizeRoomName(roomName)
	if err != nil {
		return err
	}

	unlock := e.rooms.lock(room)
	defer unlock()

	var matchID int64
	err = e.store.InTx(ctx, func(tx repo.Tx) error {
		// partida antes das contas, mesma ordem de MakeMove
		m, err := tx.LockOpenMatch(ctx, room)
		if err != nil {
			return err
		}
		if _, err := tx.LockAccounts(ctx, accountID); err != nil {
			return err
		}
		if err := m.Join(accountID, e.now()); err != nil {
			return err
		}
		matchID = m.ID
		return tx.UpdateMatch(ctx, m)
	})
	if err != nil {
		e.log.Debug("join rejected", zap.String("room", room), zap.Int64("account_id", accountID), zap.Error(err))
		return err
	}

	e.metrics.MatchJoined()
	e.log.Info("player joined", zap.Int64("match_id", matchID), zap.String("room", room), zap.Int64("account_id", accountID))
	e.emit(ctx, room, matchID, events.TypePlayerJoined, events.JoinedMessage(accountID))
	return nil
}

// MakeMove grava a jogada; a segunda jogada resolve e liquida a partida na mesma transação.
// Se algum jogador não tiver mais saldo para a aposta, nada é gravado e a partida continua aberta,
// com a mesma recusa para qualquer jogada.
func (e *Engine) MakeMove(ctx context.Context, roomName string, accountID int64, move domain.Move) (Result, error) {
	if !move.Valid() {
		return Result{}, fmt.Errorf("unknown move %d: %w", int(move), domain.ErrInvalidArgument)
	}
	if err := domain.ValidateAccountID(accountID); err != nil {
		return Result{}, err
	}
	room, err := domain.NormalizeRoomName(roomName)
	if err != nil {
		return Result{}, err
	}

	unlock := e.rooms.lock(room)
	defer unlock()

	var (
		res     = Result{Status: StatusWaiting}
		matchID int64
	)
	err = e.store.InTx(ctx, func(tx repo.Tx) error {
		m, err := tx.LockOpenMatch(ctx, room)
		if err != nil {
			return err
		}
		now := e.now()
		if err := m.RecordMove(accountID, move, now); err != nil {
			return err
		}
		matchID = m.ID

		if m.BothMoved() {
			// saldo conferido antes de saber o resultado: a recusa não revela a jogada do oponente
			if err := e.ledger.CheckStakes(ctx, tx, m); err != nil {
				return err
			}
			winner := m.Resolve(now)
			if winner != nil {
				if err := e.ledger.Settle(ctx, tx, m, *winner); err != nil {
					return err
				}
			}
			res = Result{Status: StatusResolved, WinnerID: winner}
		}
		return tx.UpdateMatch(ctx, m)
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientFunds) {
			e.metrics.SettlementFailed()
			e.log.Warn("settlement rejected, match stays open",
				zap.String("room", room), zap.Int64("account_id", accountID), zap.Error(err))
		} else {
			e.log.Debug("move rejected", zap.String("room", room), zap.Int64("account_id", accountID), zap.Error(err))
		}
		return Result{}, err
	}

	e.metrics.MoveRecorded()
	if res.Status == StatusWaiting {
		e.log.Info("move recorded", zap.Int64("match_id", matchID), zap.String("room", room), zap.Int64("account_id", accountID))
		e.emit(ctx, room, matchID, events.TypeMoveMade, events.MoveMessage(accountID))
		return res, nil
	}

	outcome := "draw"
	if res.WinnerID != nil {
		outcome = "win"
		e.metrics.Transfers(string(domain.CategoryGameSettlement), 2)
	}
	e.metrics.MatchResolved(outcome)
	e.log.Info("match resolved",
		zap.Int64("match_id", matchID), zap.String("room", room), zap.String("outcome", outcome), zap.Int64p("winner_id", res.WinnerID))
	e.emit(ctx, room, matchID, events.TypeGameEnded, events.EndedMessage(res.WinnerID))
	return res, nil
}

func (e *Engine) GetBalance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	return e.ledger.Balance(ctx, accountID)
}

// ListOpenMatches é um snapshot das partidas não encerradas
func (e *Engine) ListOpenMatches(ctx context.Context) ([]domain.OpenMatch, error) {
	return e.store.OpenMatches(ctx)
}

func (e *Engine) GetMatch(ctx context.Context, matchID int64) (*domain.Match, error) {
	if matchID <= 0 {
		return nil, fmt.Errorf("match id must be positive, got %d: %w", matchID, domain.ErrInvalidArgument)
	}
	return e.store.Match(ctx, matchID)
}

func (e *Engine) RegisterAccount(ctx context.Context, displayName string) (int64, error) {
	return e.ledger.Register(ctx, displayName)
}

func (e *Engine) PeerTransfer(ctx context.Context, from, to int64, amount decimal.Decimal) error {
	return e.ledger.PeerTransfer(ctx, from, to, amount)
}

func (e *Engine) ListLedgerEntries(ctx context.Context, accountID int64, limit int) ([]domain.LedgerEntry, error) {
	return e.ledger.Entries(ctx, accountID, limit)
}

// emit entrega o evento já commitado; falha de entrega só gera log
func (e *Engine) emit(ctx context.Context, room string, matchID int64, typ events.Type, msg string) {
	if e.sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), emitTimeout)
	defer cancel()

	ev := contracts.MatchEvent{
		EventID:  uuid.NewString(),
		Type:     string(typ),
		Room:     room,
		MatchID:  matchID,
		Message:  msg,
		TsUnixMs: e.now().UnixMilli(),
	}
	if err := e.sink.Emit(ctx, ev); err != nil {
		e.log.Warn("event delivery failed", zap.String("room", room), zap.String("type", ev.Type), zap.Error(err))
	}
}
