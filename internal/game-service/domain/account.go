package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account é o participante registrado e seu saldo
type Account struct {
	ID          int64
	DisplayName string
	Balance     decimal.Decimal
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Category identifica a origem de um lançamento no ledger
type Category string

const (
	CategoryGameSettlement Category = "game-settlement"
	CategoryPeerTransfer   Category = "peer-transfer"
	CategoryGrant          Category = "grant" // crédito inicial do sistema no registro
)

// LedgerEntry é imutável; FromAccountID nil indica crédito originado pelo sistema
type LedgerEntry struct {
	ID            int64
	FromAccountID *int64
	ToAccountID   int64
	Amount        decimal.Decimal
	Category      Category
	MatchID       *int64
	CreatedAt     time.Time
}
