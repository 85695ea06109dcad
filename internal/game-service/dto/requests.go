package dto

import "github.com/shopspring/decimal"

// Valores monetários aceitam número ou string JSON ("12.50"); a validação de escala fica no domínio.

type RegisterAccountRequest struct {
	DisplayName string `json:"displayName" validate:"required,max=64"`
}

type TransferRequest struct {
	FromAccountID int64           `json:"fromAccountId" validate:"required,gt=0"`
	ToAccountID   int64           `json:"toAccountId" validate:"required,gt=0,nefield=FromAccountID"`
	Amount        decimal.Decimal `json:"amount"`
}

type CreateMatchRequest struct {
	AccountID int64           `json:"accountId" validate:"required,gt=0"`
	Bet       decimal.Decimal `json:"bet"`
	RoomName  string          `json:"roomName" validate:"required,max=64"`
}

type JoinMatchRequest struct {
	AccountID int64 `json:"accountId" validate:"required,gt=0"`
}

type MoveRequest struct {
	AccountID int64  `json:"accountId" validate:"required,gt=0"`
	Move      string `json:"move" validate:"required"` // Rock | Paper | Scissors
}
