package events

import (
	"fmt"

	contracts "github.com/radieske/rps-wager-platform/pkg/contracts/events"
)

// Type identifica o tipo de evento entregue aos assinantes de uma sala
type Type string

const (
	TypeInfo         Type = contracts.TypeInfo
	TypePlayerJoined Type = contracts.TypePlayerJoined
	TypeMoveMade     Type = contracts.TypeMoveMade
	TypeGameEnded    Type = contracts.TypeGameEnded
)

// Event é o que o assinante recebe
type Event struct {
	Type    Type   `json:"eventType"`
	Message string `json:"message"`
}

func subscribedEvent(room string) Event {
	return Event{Type: TypeInfo, Message: fmt.Sprintf("Subscribed to room '%s'", room)}
}

// JoinedMessage, MoveMessage e EndedMessage montam o texto dos eventos de partida
func JoinedMessage(accountID int64) string { return fmt.Sprintf("User %d joined", accountID) }

func MoveMessage(accountID int64) string { return fmt.Sprintf("User %d made a move", accountID) }

func EndedMessage(winnerID *int64) string {
	if winnerID == nil {
		return "Draw"
	}
	return fmt.Sprintf("User %d won", *winnerID)
}
