package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"optix/internal/adapters/retry"
	"optix/pkg/logger"
)

// flakyReader fails the first failures reads, then serves msgs, then blocks
type flakyReader struct {
	mu       sync.Mutex
	failures int
	msgs     []kafka.Message
	reads    []time.Time
}

func (r *flakyReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	r.reads = append(r.reads, time.Now())
	if r.failures > 0 {
		r.failures--
		r.mu.Unlock()
		return kafka.Message{}, errors.New("dial tcp 127.0.0.1:9092: connect: connection refused")
	}
	if len(r.msgs) > 0 {
		msg := r.msgs[0]
		r.msgs = r.msgs[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *flakyReader) Close() error {
	return nil
}

func testConsumer(r messageReader, delay time.Duration) *Consumer {
	return &Consumer{
		reader: r,
		topic:  TopicTrades,
		backoff: retry.New(retry.Config{
			InitialDelay: delay,
			MaxDelay:     delay,
			Strategy:     retry.StrategyFixed,
		}),
		log: logger.Get(),
	}
}

func TestConsumer_BacksOffAfterReadErrors(t *testing.T) {
	r := &flakyReader{failures: 3, msgs: []kafka.Message{{Key: []byte("AAPL"), Value: []byte("{}")}}}
	c := testConsumer(r, 30*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var got []kafka.Message
	err := c.Consume(ctx, func(_ context.Context, msg kafka.Message) error {
		got = append(got, msg)
		cancel()
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, got, 1)
	assert.Equal(t, "AAPL", string(got[0].Key))

	r.mu.Lock()
	defer r.mu.Unlock()
	require.GreaterOrEqual(t, len(r.reads), 4)
	for i := 1; i < 4; i++ {
		assert.GreaterOrEqual(t, r.reads[i].Sub(r.reads[i-1]), 25*time.Millisecond, "read %d retried without pause", i)
	}
}

func TestConsumer_CancelDuringBackoff(t *testing.T) {
	r := &flakyReader{failures: 1}
	c := testConsumer(r, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- c.Consume(ctx, func(context.Context, kafka.Message) error { return nil })
	}()

	require.Eventually(t, func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		return len(r.reads) == 1
	}, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("consumer kept sleeping after cancel")
	}
}
