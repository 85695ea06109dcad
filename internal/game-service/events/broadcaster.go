package events

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/rps-wager-platform/internal/game-service/domain"
	"github.com/radieske/rps-wager-platform/internal/shared/metrics"
	contracts "github.com/radieske/rps-wager-platform/pkg/contracts/events"
)

// DefaultBuffer é a capacidade do canal de cada assinante
const DefaultBuffer = 16

var ErrClosed = errors.New("broadcaster closed")

// Subscription é uma inscrição viva numa sala.
// O canal de Events é fechado quando a inscrição termina (cancelamento, Close ou poda).
type Subscription struct {
	ID   string
	Room string

	b      *Broadcaster
	ch     chan Event
	done   chan struct{}
	mu     sync.Mutex // protege send x close
	closed bool
}

func (s *Subscription) Events() <-chan Event { return s.ch }

// Done fecha quando a inscrição foi removida
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Close remove a inscrição; chamar mais de uma vez é seguro
func (s *Subscription) Close() { s.b.Unsubscribe(s) }

// send nunca bloqueia; false significa buffer cheio ou inscrição encerrada
func (s *Subscription) send(ev Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.ch <- ev:
		return true
	default:
		return false
	}
}

func (s *Subscription) shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
	close(s.done)
}

// Broadcaster mantém, por sala, o conjunto de assinantes vivos deste processo
// e distribui os eventos de partida entre eles.
type Broadcaster struct {
	log     *zap.Logger
	metrics *metrics.Game
	buffer  int

	mu     sync.RWMutex
	rooms  map[string]map[string]*Subscription
	closed bool
}

func NewBroadcaster(log *zap.Logger, m *metrics.Game, buffer int) *Broadcaster {
	if log == nil {
		log = zap.NewNop()
	}
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Broadcaster{
		log:     log,
		metrics: m,
		buffer:  buffer,
		rooms:   make(map[string]map[string]*Subscription),
	}
}

// Subscribe registra um novo assinante na sala e já entrega o evento Info.
// Cancelar ctx encerra a inscrição.
func (b *Broadcaster) Subscribe(ctx context.Context, room string) (*Subscription, error) {
	room, err := domain.NormalizeRoomName(room)
	if err != nil {
		return nil, err
	}

	s := &Subscription{
		ID:   uuid.NewString(),
		Room: room,
		b:    b,
		ch:   make(chan Event, b.buffer),
		done: make(chan struct{}),
	}
	s.ch <- subscribedEvent(room)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrClosed
	}
	set, ok := b.rooms[room]
	if !ok {
		set = make(map[string]*Subscription)
		b.rooms[room] = set
	}
	set[s.ID] = s
	b.mu.Unlock()

	b.metrics.SubscriberAdded()
	b.log.Debug("subscribed", zap.String("room", room), zap.String("subscription_id", s.ID))

	go func() {
		select {
		case <-ctx.Done():
			b.Unsubscribe(s)
		case <-s.done:
		}
	}()
	return s, nil
}

// Publish entrega o evento a todos os assinantes da sala sem bloquear.
// Assinante com buffer cheio é removido; retorna quantos receberam.
func (b *Broadcaster) Publish(room string, ev Event) int {
	b.mu.RLock()
	set := b.rooms[room]
	subs := make([]*Subscription, 0, len(set))
	for _, s := range set {
		subs = append(subs, s)
	}
	b.mu.RUnlock()

	delivered := 0
	var dead []*Subscription
	for _, s := range subs {
		if s.send(ev) {
			delivered++
			continue
		}
		dead = append(dead, s)
	}

	for _, s := range dead {
		b.metrics.DeliveryDropped()
		b.log.Warn("subscriber pruned", zap.String("room", room), zap.String("subscription_id", s.ID))
		b.Unsubscribe(s)
	}
	return delivered
}

// Emit implementa Sink publicando localmente
func (b *Broadcaster) Emit(_ context.Context, ev contracts.MatchEvent) error {
	b.Publish(ev.Room, Event{Type: Type(ev.Type), Message: ev.Message})
	return nil
}

// Unsubscribe remove exatamente esta inscrição; no-op se já removida
func (b *Broadcaster) Unsubscribe(s *Subscription) {
	if s == nil {
		return
	}
	b.mu.Lock()
	set, ok := b.rooms[s.Room]
	if ok {
		if _, found := set[s.ID]; found {
			delete(set, s.ID)
			if len(set) == 0 {
				delete(b.rooms, s.Room)
			}
		} else {
			ok = false
		}
	}
	b.mu.Unlock()

	s.shutdown()
	if ok {
		b.metrics.SubscriberRemoved()
		b.log.Debug("unsubscribed", zap.String("room", s.Room), zap.String("subscription_id", s.ID))
	}
}

// Subscribers conta os assinantes vivos de uma sala
func (b *Broadcaster) Subscribers(room string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.rooms[room])
}

// Close encerra todas as inscrições; novos Subscribe falham com ErrClosed
func (b *Broadcaster) Close() {
	b.mu.Lock()
	b.closed = true
	var all []*Subscription
	for _, set := range b.rooms {
		for _, s := range set {
			all = append(all, s)
		}
	}
	b.rooms = make(map[string]map[string]*Subscription)
	b.mu.Unlock()

	for _, s := range all {
		s.shutdown()
		b.metrics.SubscriberRemoved()
	}
}
