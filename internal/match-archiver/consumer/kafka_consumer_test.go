package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/rps-wager-platform/pkg/contracts/events"
)

// fakeReader entrega as mensagens em ordem e cancela o contexto ao esgotar
type fakeReader struct {
	msgs      []kafka.Message
	cancel    context.CancelFunc
	committed []int64
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(f.msgs) == 0 {
		f.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := f.msgs[0]
	f.msgs = f.msgs[1:]
	return m, nil
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		f.committed = append(f.committed, m.Offset)
	}
	return nil
}

type fakeRepo struct {
	mu       sync.Mutex
	failures int
	seen     map[string]bool
}

func (r *fakeRepo) Archive(_ context.Context, e events.MatchEvent) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failures > 0 {
		r.failures--
		return false, errors.New("db down")
	}
	if r.seen[e.EventID] {
		return false, nil
	}
	r.seen[e.EventID] = true
	return true, nil
}

func msg(t *testing.T, offset int64, ev events.MatchEvent) kafka.Message {
	t.Helper()
	b, err := json.Marshal(ev)
	require.NoError(t, err)
	return kafka.Message{Offset: offset, Value: b}
}

func TestProcessor_Run(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ev := events.MatchEvent{EventID: "9f1a2b3c-4d5e-4f60-8a7b-0c1d2e3f4a5b", Type: events.TypeMoveMade, Room: "arena", MatchID: 1}
	reader := &fakeReader{cancel: cancel, msgs: []kafka.Message{
		msg(t, 1, ev),
		{Offset: 2, Value: []byte("{broken")},
		msg(t, 3, events.MatchEvent{EventID: "not-a-uuid", Type: events.TypeInfo, Room: "arena"}),
		msg(t, 4, ev), // reentrega
	}}
	repo := &fakeRepo{failures: 1, seen: map[string]bool{}}

	var consumed, persisted, duplicates int
	stages := map[string]int{}
	p := &Processor{
		Log:         zap.NewNop(),
		Reader:      reader,
		Repo:        repo,
		OnConsumed:  func() { consumed++ },
		OnPersist:   func() { persisted++ },
		OnDuplicate: func() { duplicates++ },
		OnError:     func(stage string) { stages[stage]++ },
	}

	err := p.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, 4, consumed)
	assert.Equal(t, 1, persisted)
	assert.Equal(t, 1, duplicates)
	assert.Equal(t, 2, stages["decode"])
	assert.Equal(t, 1, stages["db_archive"], "first attempt failed and was retried")
	assert.Equal(t, []int64{1, 2, 3, 4}, reader.committed)
}
