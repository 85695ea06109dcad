package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	contracts "github.com/radieske/rps-wager-platform/pkg/contracts/events"
)

// Os relays levam os eventos de sala entre instâncias do game-service.
// Cada instância entrega localmente na hora e ignora o próprio eco ao receber do relay.

// RedisRelay usa Redis Pub/Sub
type RedisRelay struct {
	rdb     *redis.Client
	channel string
	origin  string
	local   *Broadcaster
	log     *zap.Logger
}

func NewRedisRelay(rdb *redis.Client, channel, origin string, local *Broadcaster, log *zap.Logger) *RedisRelay {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisRelay{rdb: rdb, channel: channel, origin: origin, local: local, log: log}
}

func (r *RedisRelay) Emit(ctx context.Context, ev contracts.MatchEvent) error {
	b, err := encodeRelay(ev, r.origin)
	if err != nil {
		return err
	}
	if err := r.rdb.Publish(ctx, r.channel, b).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", r.channel, err)
	}
	return nil
}

// Run escuta o canal e repassa para o Broadcaster local até ctx ser cancelado
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.rdb.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe %s: %w", r.channel, err)
	}
	ch := sub.Channel()
	r.log.Info("redis relay subscribed", zap.String("channel", r.channel))

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			deliverRelay(r.local, r.origin, []byte(msg.Payload), r.log)
		}
	}
}

// NATSRelay usa um subject NATS core
type NATSRelay struct {
	nc      *nats.Conn
	subject string
	origin  string
	local   *Broadcaster
	log     *zap.Logger
}

func NewNATSRelay(nc *nats.Conn, subject, origin string, local *Broadcaster, log *zap.Logger) *NATSRelay {
	if log == nil {
		log = zap.NewNop()
	}
	return &NATSRelay{nc: nc, subject: subject, origin: origin, local: local, log: log}
}

func (n *NATSRelay) Emit(_ context.Context, ev contracts.MatchEvent) error {
	b, err := encodeRelay(ev, n.origin)
	if err != nil {
		return err
	}
	if err := n.nc.Publish(n.subject, b); err != nil {
		return fmt.Errorf("nats publish %s: %w", n.subject, err)
	}
	return nil
}

func (n *NATSRelay) Run(ctx context.Context) error {
	sub, err := n.nc.Subscribe(n.subject, func(msg *nats.Msg) {
		deliverRelay(n.local, n.origin, msg.Data, n.log)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe %s: %w", n.subject, err)
	}
	n.log.Info("nats relay subscribed", zap.String("subject", n.subject))

	<-ctx.Done()
	return sub.Unsubscribe()
}

func encodeRelay(ev contracts.MatchEvent, origin string) ([]byte, error) {
	ev.Origin = origin
	b, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal relay event: %w", err)
	}
	return b, nil
}

func deliverRelay(local *Broadcaster, origin string, payload []byte, log *zap.Logger) {
	var ev contracts.MatchEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		log.Warn("relay unmarshal error", zap.Error(err))
		return
	}
	if ev.Origin == origin {
		return
	}
	local.Publish(ev.Room, Event{Type: Type(ev.Type), Message: ev.Message})
}
