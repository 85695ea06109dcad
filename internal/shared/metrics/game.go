package metrics

import "github.com/prometheus/client_golang/prometheus"

// Game agrupa as métricas do game-service.
// Um *Game nil é válido: todos os métodos viram no-op (útil em testes).
type Game struct {
	matchesCreated    prometheus.Counter
	matchesJoined     prometheus.Counter
	matchesResolved   *prometheus.CounterVec // outcome: win | draw
	moves             prometheus.Counter
	settlementsFailed prometheus.Counter
	transfers         *prometheus.CounterVec // category
	subscribers       prometheus.Gauge
	dropped           prometheus.Counter
}

// NewGame cria e registra as métricas no registerer informado
func NewGame(reg prometheus.Registerer) *Game {
	g := &Game{
		matchesCreated:    prometheus.NewCounter(prometheus.CounterOpts{Name: "rps_matches_created_total", Help: "partidas criadas"}),
		matchesJoined:     prometheus.NewCounter(prometheus.CounterOpts{Name: "rps_matches_joined_total", Help: "entradas de segundo jogador"}),
		matchesResolved:   prometheus.NewCounterVec(prometheus.CounterOpts{Name: "rps_matches_resolved_total", Help: "partidas encerradas por resultado"}, []string{"outcome"}),
		moves:             prometheus.NewCounter(prometheus.CounterOpts{Name: "rps_moves_total", Help: "jogadas registradas"}),
		settlementsFailed: prometheus.NewCounter(prometheus.CounterOpts{Name: "rps_settlements_failed_total", Help: "liquidações rejeitadas por saldo"}),
		transfers:         prometheus.NewCounterVec(prometheus.CounterOpts{Name: "rps_ledger_transfers_total", Help: "lançamentos no ledger por categoria"}, []string{"category"}),
		subscribers:       prometheus.NewGauge(prometheus.GaugeOpts{Name: "rps_room_subscribers", Help: "assinaturas ativas neste processo"}),
		dropped:           prometheus.NewCounter(prometheus.CounterOpts{Name: "rps_event_deliveries_dropped_total", Help: "entregas descartadas e assinantes removidos"}),
	}
	reg.MustRegister(g.matchesCreated, g.matchesJoined, g.matchesResolved, g.moves,
		g.settlementsFailed, g.transfers, g.subscribers, g.dropped)
	return g
}

func (g *Game) MatchCreated() {
	if g != nil {
		g.matchesCreated.Inc()
	}
}

func (g *Game) MatchJoined() {
	if g != nil {
		g.matchesJoined.Inc()
	}
}

// MatchResolved conta por resultado: "win" ou "draw"
func (g *Game) MatchResolved(outcome string) {
	if g != nil {
		g.matchesResolved.WithLabelValues(outcome).Inc()
	}
}

func (g *Game) MoveRecorded() {
	if g != nil {
		g.moves.Inc()
	}
}

func (g *Game) SettlementFailed() {
	if g != nil {
		g.settlementsFailed.Inc()
	}
}

func (g *Game) Transfers(category string, n int) {
	if g != nil {
		g.transfers.WithLabelValues(category).Add(float64(n))
	}
}

func (g *Game) SubscriberAdded() {
	if g != nil {
		g.subscribers.Inc()
	}
}

func (g *Game) SubscriberRemoved() {
	if g != nil {
		g.subscribers.Dec()
	}
}

func (g *Game) DeliveryDropped() {
	if g != nil {
		g.dropped.Inc()
	}
}
