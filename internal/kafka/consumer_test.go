package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeReader serves queued messages, then blocks until ctx is done.
type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
	fetchErr  error
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if r.fetchErr != nil {
		defer r.mu.Unlock()
		return kafka.Message{}, r.fetchErr
	}
	if len(r.queue) > 0 {
		msg := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

func (r *fakeReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

func event(t *testing.T, offset int64, table string, rows int) kafka.Message {
	t.Helper()
	data, err := json.Marshal(SnapshotCommitted{Table: table, Rows: rows})
	require.NoError(t, err)
	return kafka.Message{Offset: offset, Key: []byte(table), Value: data}
}

func newTestConsumer(r *fakeReader) *Consumer {
	return &Consumer{reader: r, backoff: func(int) time.Duration { return time.Millisecond }}
}

func TestConsumeDeliversAndCommits(t *testing.T) {
	r := &fakeReader{queue: []kafka.Message{
		event(t, 1, "lancamentos", 3),
		{Offset: 2, Value: []byte("not json")},
		event(t, 3, "cartoes", 1),
	}}
	c := newTestConsumer(r)

	ctx, cancel := context.WithCancel(context.Background())
	var mu sync.Mutex
	var tables []string
	done := make(chan error, 1)
	go func() {
		done <- c.Consume(ctx, func(_ context.Context, ev SnapshotCommitted) error {
			mu.Lock()
			defer mu.Unlock()
			tables = append(tables, ev.Table)
			return nil
		})
	}()

	require.Eventually(t, func() bool { return len(r.commits()) == 3 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"lancamentos", "cartoes"}, tables)
	assert.Equal(t, []int64{1, 2, 3}, r.commits())
}

func TestConsumeRetriesHandler(t *testing.T) {
	r := &fakeReader{queue: []kafka.Message{event(t, 7, "clientes", 2)}}
	c := newTestConsumer(r)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var calls int
	var mu sync.Mutex
	go c.Consume(ctx, func(context.Context, SnapshotCommitted) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls < 3 {
			return errors.New("sheets unavailable")
		}
		return nil
	})

	require.Eventually(t, func() bool { return len(r.commits()) == 1 }, time.Second, 5*time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, calls)
}

func TestConsumeCommitsAfterRetriesRunOut(t *testing.T) {
	r := &fakeReader{queue: []kafka.Message{event(t, 4, "cartoes", 1), event(t, 5, "cartoes", 2)}}
	c := newTestConsumer(r)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var calls int
	var mu sync.Mutex
	go c.Consume(ctx, func(context.Context, SnapshotCommitted) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return errors.New("sheets unavailable")
	})

	require.Eventually(t, func() bool { return len(r.commits()) == 2 }, time.Second, 5*time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2*maxHandleAttempts, calls)
}

func TestConsumeFetchError(t *testing.T) {
	c := newTestConsumer(&fakeReader{fetchErr: errors.New("broker gone")})
	err := c.Consume(context.Background(), func(context.Context, SnapshotCommitted) error { return nil })
	assert.ErrorContains(t, err, "broker gone")
}

func TestDecodeSnapshotCommitted(t *testing.T) {
	ev, err := DecodeSnapshotCommitted([]byte(`{"table":"lancamentos","rows":4}`))
	require.NoError(t, err)
	assert.Equal(t, "lancamentos", ev.Table)
	assert.Equal(t, 4, ev.Rows)

	_, err = DecodeSnapshotCommitted([]byte(`{"rows":4}`))
	assert.Error(t, err)
}

func TestNewConsumerClose(t *testing.T) {
	r := &fakeReader{}
	require.NoError(t, newTestConsumer(r).Close())
	assert.True(t, r.closed)
}
