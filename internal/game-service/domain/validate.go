package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	MaxNameLength = 64
	// MoneyScale é a precisão monetária; valores com mais casas são rejeitados, nunca arredondados
	MoneyScale = 2
)

// NormalizeRoomName remove espaços nas bordas e valida o nome da sala
func NormalizeRoomName(room string) (string, error) {
	return normalizeName("room name", room)
}

// NormalizeDisplayName remove espaços nas bordas e valida o nome de exibição
func NormalizeDisplayName(name string) (string, error) {
	return normalizeName("display name", name)
}

func normalizeName(field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", fmt.Errorf("%s is required: %w", field, ErrInvalidArgument)
	}
	if utf8.RuneCountInString(v) > MaxNameLength {
		return "", fmt.Errorf("%s longer than %d characters: %w", field, MaxNameLength, ErrInvalidArgument)
	}
	return v, nil
}

// ValidateAmount exige valor positivo com no máximo MoneyScale casas decimais
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("amount must be positive, got %s: %w", amount, ErrInvalidArgument)
	}
	if !amount.Equal(amount.Truncate(MoneyScale)) {
		return fmt.Errorf("amount %s exceeds %d decimal places: %w", amount, MoneyScale, ErrInvalidArgument)
	}
	return nil
}

// ValidateAccountID rejeita ids não positivos antes de qualquer leitura
func ValidateAccountID(id int64) error {
	if id <= 0 {
		return fmt.Errorf("account id must be positive, got %d: %w", id, ErrInvalidArgument)
	}
	return nil
}
