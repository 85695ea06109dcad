package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/rps-wager-platform/pkg/contracts/events"
)

const retryDelay = 500 * time.Millisecond

// MessageReader é o subconjunto de *kafka.Reader usado pelo Processor
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Archiver grava o evento; false indica que já estava arquivado
type Archiver interface {
	Archive(ctx context.Context, e events.MatchEvent) (bool, error)
}

// Processor consome match_events do Kafka e arquiva no Postgres.
// O offset só é commitado depois da gravação (at-least-once; a gravação é idempotente).
type Processor struct {
	Log    *zap.Logger
	Reader MessageReader
	Repo   Archiver

	OnConsumed  func()       // métricas (counter++)
	OnPersist   func()       // métricas
	OnDuplicate func()       // métricas
	OnError     func(string) // métricas por fase
}

// Run inicia o loop principal de consumo até ctx ser cancelado
func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err() // encerra se o contexto for cancelado
			}
			p.Log.Warn("kafka fetch failed", zap.Error(err))
			p.fail("read")
			if !sleep(ctx, retryDelay) {
				return ctx.Err()
			}
			continue
		}

		if p.OnConsumed != nil {
			p.OnConsumed()
		}

		ev, err := decode(m.Value)
		if err != nil {
			// mensagem inválida nunca vai passar: registra e segue
			p.Log.Warn("invalid message", zap.Int64("offset", m.Offset), zap.Error(err))
			p.fail("decode")
		} else if err := p.archive(ctx, ev); err != nil {
			return err
		}

		if err := p.Reader.CommitMessages(ctx, m); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Log.Warn("kafka commit failed", zap.Error(err))
			p.fail("commit")
		}
	}
}

// archive insiste até gravar ou ctx ser cancelado
func (p *Processor) archive(ctx context.Context, ev events.MatchEvent) error {
	for {
		created, err := p.Repo.Archive(ctx, ev)
		if err == nil {
			switch {
			case created && p.OnPersist != nil:
				p.OnPersist()
			case !created && p.OnDuplicate != nil:
				p.OnDuplicate()
			}
			p.Log.Debug("event archived",
				zap.String("event_id", ev.EventID), zap.String("type", ev.Type), zap.Bool("duplicate", !created))
			return nil
		}
		p.Log.Warn("db archive failed", zap.String("event_id", ev.EventID), zap.Error(err))
		p.fail("db_archive")
		if !sleep(ctx, retryDelay) {
			return ctx.Err()
		}
	}
}

func (p *Processor) fail(stage string) {
	if p.OnError != nil {
		p.OnError(stage)
	}
}

func decode(b []byte) (events.MatchEvent, error) {
	var ev events.MatchEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		return ev, err
	}
	if _, err := uuid.Parse(ev.EventID); err != nil {
		return ev, fmt.Errorf("event_id: %w", err)
	}
	if ev.Type == "" || ev.Room == "" {
		return ev, fmt.Errorf("event %s missing type or room", ev.EventID)
	}
	return ev, nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
