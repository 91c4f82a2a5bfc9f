package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Shivanand-hulikatti/campus-events/internal/model"
)

type recordingSink struct {
	mu      sync.Mutex
	got     []model.Notification
	started chan struct{}
	release chan struct{}
	err     error
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Deliver(ctx context.Context, n model.Notification) error {
	if s.started != nil {
		select {
		case s.started <- struct{}{}:
		default:
		}
	}
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, n)
	return s.err
}

func (s *recordingSink) titles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.got))
	for _, n := range s.got {
		out = append(out, n.Title)
	}
	return out
}

func TestDispatcher_DeliversToEverySink(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	first, second := &recordingSink{}, &recordingSink{}
	d := NewDispatcher(Config{Workers: 2, QueueDepth: 8}, zerolog.Nop(), first, second)

	d.Enqueue(context.Background(), model.Notification{RecipientID: "s1", Title: "Registration confirmed"})
	d.Enqueue(context.Background(), model.Notification{RecipientID: "o1", Title: "New registration", Type: model.NotifyUpdate})
	d.Close()

	assert.ElementsMatch(t, []string{"Registration confirmed", "New registration"}, first.titles())
	assert.ElementsMatch(t, []string{"Registration confirmed", "New registration"}, second.titles())

	for _, n := range first.got {
		assert.NotEmpty(t, n.ID)
		assert.False(t, n.CreatedAt.IsZero())
		assert.NotEmpty(t, n.Type)
	}
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	sink := &recordingSink{started: make(chan struct{}, 1), release: make(chan struct{})}
	d := NewDispatcher(Config{Workers: 1, QueueDepth: 1}, zerolog.Nop(), sink)

	d.Enqueue(context.Background(), model.Notification{RecipientID: "a", Title: "one"})
	select {
	case <-sink.started:
	case <-time.After(2 * time.Second):
		t.Fatal("worker never picked up the first notification")
	}

	d.Enqueue(context.Background(), model.Notification{RecipientID: "a", Title: "two"})
	d.Enqueue(context.Background(), model.Notification{RecipientID: "a", Title: "three"})

	close(sink.release)
	d.Close()

	assert.Equal(t, []string{"one", "two"}, sink.titles())
}

func TestDispatcher_SinkErrorDoesNotStopOthers(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	failing := &recordingSink{err: errors.New("boom")}
	ok := &recordingSink{}
	d := NewDispatcher(Config{Workers: 1, QueueDepth: 4}, zerolog.Nop(), failing, ok)

	d.Enqueue(context.Background(), model.Notification{RecipientID: "a", Title: "hello"})
	d.Close()

	assert.Equal(t, []string{"hello"}, ok.titles())
}

func TestDispatcher_EnqueueAfterCloseIsDropped(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	sink := &recordingSink{}
	d := NewDispatcher(Config{Workers: 1, QueueDepth: 4}, zerolog.Nop(), sink)
	d.Close()
	d.Close()

	assert.NotPanics(t, func() {
		d.Enqueue(context.Background(), model.Notification{RecipientID: "a", Title: "late"})
	})
	assert.Empty(t, sink.titles())
}

type memoryStore struct {
	mu  sync.Mutex
	got []*model.Notification
}

func (m *memoryStore) Create(_ context.Context, n *model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.got = append(m.got, n)
	return nil
}

func TestStoreSink(t *testing.T) {
	store := &memoryStore{}
	sink := NewStoreSink(store)

	require.NoError(t, sink.Deliver(context.Background(), model.Notification{ID: "n1", RecipientID: "s1"}))
	require.Len(t, store.got, 1)
	assert.Equal(t, "n1", store.got[0].ID)
}

func TestRedisPublisher_PublishesToRecipientChannel(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub := client.Subscribe(ctx, ChannelPrefix+"s1")
	defer func() { _ = sub.Close() }()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	pub := NewRedisPublisher(client)
	n := model.Notification{ID: "n1", RecipientID: "s1", Title: "Check-in successful", Type: model.NotifyInfo}
	require.NoError(t, pub.Deliver(ctx, n))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)

	var got model.Notification
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
	assert.Equal(t, "n1", got.ID)
	assert.Equal(t, "Check-in successful", got.Title)
}

func TestDialRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := DialRedis(context.Background(), RedisConfig{Addr: mr.Addr()}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, client.Close())

	addr := mr.Addr()
	mr.Close()
	_, err = DialRedis(context.Background(), RedisConfig{Addr: addr}, zerolog.Nop())
	assert.Error(t, err)
}
