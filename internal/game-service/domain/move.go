package domain

import (
	"fmt"
	"strings"
)

// Move é a jogada de um participante
type Move int

const (
	MoveRock Move = iota + 1
	MovePaper
	MoveScissors
)

var moveNames = map[Move]string{
	MoveRock:     "Rock",
	MovePaper:    "Paper",
	MoveScissors: "Scissors",
}

// ParseMove aceita o nome da jogada sem diferenciar maiúsculas
func ParseMove(s string) (Move, error) {
	for m, name := range moveNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown move %q: %w", s, ErrInvalidArgument)
}

func (m Move) Valid() bool {
	_, ok := moveNames[m]
	return ok
}

func (m Move) String() string {
	if name, ok := moveNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Move(%d)", int(m))
}

// Beats aplica a precedência clássica: pedra > tesoura > papel > pedra
func (m Move) Beats(other Move) bool {
	switch m {
	case MoveRock:
		return other == MoveScissors
	case MoveScissors:
		return other == MovePaper
	case MovePaper:
		return other == MoveRock
	}
	return false
}

// Winner retorna o id do vencedor, ou nil em caso de empate
func Winner(playerOne, playerTwo int64, moveOne, moveTwo Move) *int64 {
	switch {
	case moveOne == moveTwo:
		return nil
	case moveOne.Beats(moveTwo):
		return &playerOne
	default:
		return &playerTwo
	}
}
