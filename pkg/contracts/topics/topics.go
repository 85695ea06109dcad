package topics

const (
	// Ciclo de vida das partidas
	MatchEvents = "match_events"

	// Fan-out de salas entre instâncias (Redis channel / NATS subject)
	RoomEvents = "room_events"
)
