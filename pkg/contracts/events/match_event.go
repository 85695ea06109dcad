package events

// Tipos de evento do ciclo de vida de uma partida
const (
	TypeInfo         = "Info"
	TypePlayerJoined = "PlayerJoined"
	TypeMoveMade     = "MoveMade"
	TypeGameEnded    = "GameEnded"
)

// MatchEvent é o payload publicado no Kafka (match_events) e no relay entre instâncias.
// EventID garante idempotência no arquivamento.
type MatchEvent struct {
	EventID  string `json:"event_id"`
	Type     string `json:"type"`
	Room     string `json:"room"`
	MatchID  int64  `json:"match_id"`
	Message  string `json:"message"`
	TsUnixMs int64  `json:"ts_unix_ms"`
	// Origin identifica a instância que publicou (relays ignoram o próprio eco)
	Origin string `json:"origin,omitempty"`
}
