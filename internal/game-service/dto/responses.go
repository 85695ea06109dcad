package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/radieske/rps-wager-platform/internal/game-service/domain"
)

type AccountResponse struct {
	AccountID int64 `json:"accountId"`
}

type BalanceResponse struct {
	AccountID int64           `json:"accountId"`
	Balance   decimal.Decimal `json:"balance"`
}

type LedgerEntryResponse struct {
	EntryID       int64           `json:"entryId"`
	FromAccountID *int64          `json:"fromAccountId,omitempty"`
	ToAccountID   int64           `json:"toAccountId"`
	Amount        decimal.Decimal `json:"amount"`
	Category      string          `json:"category"`
	MatchID       *int64          `json:"matchId,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

type MatchCreatedResponse struct {
	MatchID int64 `json:"matchId"`
}

type OpenMatchResponse struct {
	RoomName  string          `json:"roomName"`
	Bet       decimal.Decimal `json:"bet"`
	IsWaiting bool            `json:"isWaiting"`
}

type MatchResponse struct {
	MatchID       int64           `json:"matchId"`
	RoomName      string          `json:"roomName"`
	Bet           decimal.Decimal `json:"bet"`
	State         string          `json:"state"`
	PlayerOneID   int64           `json:"playerOneId"`
	PlayerTwoID   *int64          `json:"playerTwoId,omitempty"`
	PlayerOneMove string          `json:"playerOneMove,omitempty"`
	PlayerTwoMove string          `json:"playerTwoMove,omitempty"`
	WinnerID      *int64          `json:"winnerId,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

type MoveResponse struct {
	Status   string `json:"status"`
	WinnerID *int64 `json:"winnerId,omitempty"`
}

// ErrorResponse carrega o código do domínio (INVALID_ARGUMENT, NOT_FOUND...) e detalhes de validação
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Details map[string]string `json:"details,omitempty"`
}

func NewLedgerEntries(in []domain.LedgerEntry) []LedgerEntryResponse {
	out := make([]LedgerEntryResponse, 0, len(in))
	for _, e := range in {
		out = append(out, LedgerEntryResponse{
			EntryID:       e.ID,
			FromAccountID: e.FromAccountID,
			ToAccountID:   e.ToAccountID,
			Amount:        e.Amount,
			Category:      string(e.Category),
			MatchID:       e.MatchID,
			CreatedAt:     e.CreatedAt,
		})
	}
	return out
}

func NewOpenMatches(in []domain.OpenMatch) []OpenMatchResponse {
	out := make([]OpenMatchResponse, 0, len(in))
	for _, m := range in {
		out = append(out, OpenMatchResponse{RoomName: m.RoomName, Bet: m.Bet, IsWaiting: m.IsWaiting})
	}
	return out
}

// NewMatch só revela as jogadas depois do encerramento
func NewMatch(m *domain.Match) MatchResponse {
	r := MatchResponse{
		MatchID:     m.ID,
		RoomName:    m.RoomName,
		Bet:         m.Bet,
		State:       string(m.State()),
		PlayerOneID: m.PlayerOneID,
		PlayerTwoID: m.PlayerTwoID,
		WinnerID:    m.WinnerID,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if m.Ended {
		if m.PlayerOneMove != nil {
			r.PlayerOneMove = m.PlayerOneMove.String()
		}
		if m.PlayerTwoMove != nil {
			r.PlayerTwoMove = m.PlayerTwoMove.String()
		}
	}
	return r
}
