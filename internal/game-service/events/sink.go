package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"

	contracts "github.com/radieske/rps-wager-platform/pkg/contracts/events"
)

// Sink recebe os eventos de partida depois do commit
type Sink interface {
	Emit(ctx context.Context, ev contracts.MatchEvent) error
}

// Fanout repassa o evento para todos os sinks; uma falha não impede os demais
type Fanout []Sink

func (f Fanout) Emit(ctx context.Context, ev contracts.MatchEvent) error {
	var errs []error
	for _, s := range f {
		if s == nil {
			continue
		}
		if err := s.Emit(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// MessageWriter é o subconjunto de *kafka.Writer usado pelo KafkaSink
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaSink publica o ciclo de vida das partidas no tópico match_events.
// A chave é a sala, então os eventos de uma sala ficam ordenados na mesma partição.
type KafkaSink struct {
	Writer MessageWriter
}

func NewKafkaSink(w MessageWriter) *KafkaSink { return &KafkaSink{Writer: w} }

func (k *KafkaSink) Emit(ctx context.Context, ev contracts.MatchEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal match event: %w", err)
	}
	if err := k.Writer.WriteMessages(ctx, kafka.Message{Key: []byte(ev.Room), Value: b}); err != nil {
		return fmt.Errorf("kafka write %s: %w", ev.Type, err)
	}
	return nil
}
