package events

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	contracts "github.com/radieske/rps-wager-platform/pkg/contracts/events"
)

func recv(t *testing.T, s *Subscription) Event {
	t.Helper()
	select {
	case ev, ok := <-s.Events():
		require.True(t, ok, "channel closed")
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event received")
		return Event{}
	}
}

func TestSubscribe_ReceivesInfoThenEvents(t *testing.T) {
	b := NewBroadcaster(nil, nil, 4)
	s, err := b.Subscribe(context.Background(), " arena ")
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, Event{Type: TypeInfo, Message: "Subscribed to room 'arena'"}, recv(t, s))

	n := b.Publish("arena", Event{Type: TypePlayerJoined, Message: JoinedMessage(2)})
	assert.Equal(t, 1, n)
	assert.Equal(t, Event{Type: TypePlayerJoined, Message: "User 2 joined"}, recv(t, s))

	assert.Zero(t, b.Publish("other-room", Event{Type: TypeMoveMade}))
}

func TestSubscribe_InvalidRoom(t *testing.T) {
	b := NewBroadcaster(nil, nil, 0)
	_, err := b.Subscribe(context.Background(), "")
	assert.Error(t, err)
}

func TestUnsubscribe_IsIdempotent(t *testing.T) {
	b := NewBroadcaster(nil, nil, 0)
	s, err := b.Subscribe(context.Background(), "arena")
	require.NoError(t, err)
	other, err := b.Subscribe(context.Background(), "arena")
	require.NoError(t, err)
	assert.Equal(t, 2, b.Subscribers("arena"))

	b.Unsubscribe(s)
	b.Unsubscribe(s)
	s.Close()
	b.Unsubscribe(nil)
	assert.Equal(t, 1, b.Subscribers("arena"))

	<-s.Done()
	recv(t, other)
	assert.Equal(t, 1, b.Publish("arena", Event{Type: TypeMoveMade}))
}

func TestSubscribe_ContextCancelRemoves(t *testing.T) {
	b := NewBroadcaster(nil, nil, 0)
	ctx, cancel := context.WithCancel(context.Background())
	s, err := b.Subscribe(ctx, "arena")
	require.NoError(t, err)

	cancel()
	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("subscription not removed after cancel")
	}
	assert.Zero(t, b.Subscribers("arena"))
	assert.Zero(t, b.Publish("arena", Event{Type: TypeGameEnded, Message: "Draw"}))

	// canal drenado termina fechado
	recv(t, s)
	_, ok := <-s.Events()
	assert.False(t, ok)
}

func TestPublish_SlowSubscriberIsPrunedWithoutBlocking(t *testing.T) {
	b := NewBroadcaster(nil, nil, 2)
	slow, err := b.Subscribe(context.Background(), "arena")
	require.NoError(t, err)
	fast, err := b.Subscribe(context.Background(), "arena")
	require.NoError(t, err)

	got := make(chan Event, 16)
	go func() {
		for ev := range fast.Events() {
			got <- ev
		}
	}()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			b.Publish("arena", Event{Type: TypeMoveMade, Message: fmt.Sprint(i)})
			time.Sleep(5 * time.Millisecond)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	select {
	case <-slow.Done():
	default:
		t.Fatal("slow subscriber should have been pruned")
	}
	assert.Equal(t, 1, b.Subscribers("arena"))

	assert.Eventually(t, func() bool { return len(got) == 6 }, time.Second, 5*time.Millisecond)
}

func TestBroadcaster_ConcurrentAccess(t *testing.T) {
	b := NewBroadcaster(nil, nil, 64)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			room := fmt.Sprintf("room-%d", i%3)
			s, err := b.Subscribe(context.Background(), room)
			if !assert.NoError(t, err) {
				return
			}
			b.Publish(room, Event{Type: TypeInfo})
			s.Close()
		}(i)
		go func(i int) {
			defer wg.Done()
			_ = b.Emit(context.Background(), contracts.MatchEvent{Room: fmt.Sprintf("room-%d", i%3), Type: contracts.TypeMoveMade})
		}(i)
	}
	wg.Wait()

	for i := 0; i < 3; i++ {
		assert.Zero(t, b.Subscribers(fmt.Sprintf("room-%d", i)))
	}
}

func TestClose_EndsEverySubscription(t *testing.T) {
	b := NewBroadcaster(nil, nil, 0)
	s1, _ := b.Subscribe(context.Background(), "a")
	s2, _ := b.Subscribe(context.Background(), "b")

	b.Close()
	<-s1.Done()
	<-s2.Done()

	_, err := b.Subscribe(context.Background(), "a")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestEndedMessage(t *testing.T) {
	id := int64(9)
	assert.Equal(t, "Draw", EndedMessage(nil))
	assert.Equal(t, "User 9 won", EndedMessage(&id))
	assert.Equal(t, "User 3 made a move", MoveMessage(3))
}
