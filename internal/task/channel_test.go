package task

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benjamin1108/reinvent-insight/internal/events"
)

// collect drains a subscription until it closes or the timeout fires.
func collect(t *testing.T, stream <-chan events.Event, timeout time.Duration) []events.Event {
	t.Helper()

	var got []events.Event
	deadline := time.After(timeout)
	for {
		select {
		case e, ok := <-stream:
			if !ok {
				return got
			}
			got = append(got, e)
		case <-deadline:
			t.Fatalf("timed out waiting for stream to close, got %d events", len(got))
		}
	}
}

func messages(evts []events.Event) []string {
	out := make([]string, 0, len(evts))
	for _, e := range evts {
		out = append(out, e.Message)
	}
	return out
}

func TestChannel_ReplayBeforeLive(t *testing.T) {
	t.Parallel()

	// Capacity 5, 8 events published before any subscriber attaches: the
	// subscriber must still receive all 8 in original order, then the
	// terminal event.
	ch := NewChannel(5)

	for i := 0; i < 8; i++ {
		require.NoError(t, ch.Publish(events.NewLog(fmt.Sprintf("log %d", i))))
	}

	stream := ch.Subscribe(context.Background())

	go func() {
		_ = ch.Publish(events.NewError("boom"))
		ch.Close()
	}()

	got := collect(t, stream, 2*time.Second)
	require.Len(t, got, 9)
	for i := 0; i < 8; i++ {
		assert.Equal(t, fmt.Sprintf("log %d", i), got[i].Message)
	}
	assert.Equal(t, events.KindError, got[8].Kind)
}

func TestChannel_PrefixConsistentReplay(t *testing.T) {
	t.Parallel()

	ch := NewChannel(10)

	for i := 0; i < 3; i++ {
		require.NoError(t, ch.Publish(events.NewLog(fmt.Sprintf("log %d", i))))
	}

	// Attach, read, detach; publish more; attach again. Every attachment's
	// stream must start with exactly the events the previous one saw.
	ctx1, cancel1 := context.WithCancel(context.Background())
	stream1 := ch.Subscribe(ctx1)

	var first []events.Event
	for i := 0; i < 3; i++ {
		select {
		case e := <-stream1:
			first = append(first, e)
		case <-time.After(time.Second):
			t.Fatal("timed out reading first attachment")
		}
	}
	cancel1()

	require.NoError(t, ch.Publish(events.NewLog("log 3")))
	require.NoError(t, ch.Publish(events.NewError("done")))
	ch.Close()

	second := collect(t, ch.Subscribe(context.Background()), 2*time.Second)
	third := collect(t, ch.Subscribe(context.Background()), 2*time.Second)

	require.Len(t, second, 5)
	assert.Equal(t, messages(first), messages(second[:3]))
	assert.Equal(t, messages(second), messages(third))
}

func TestChannel_PublishAfterClose(t *testing.T) {
	t.Parallel()

	ch := NewChannel(10)
	ch.Close()
	ch.Close() // idempotent

	err := ch.Publish(events.NewLog("late"))
	assert.ErrorIs(t, err, ErrChannelClosed)
	assert.True(t, ch.Closed())
	assert.Equal(t, 0, ch.Len())
}

func TestChannel_SubscribeAfterCloseDrainsHistory(t *testing.T) {
	t.Parallel()

	ch := NewChannel(10)
	require.NoError(t, ch.Publish(events.NewLog("only")))
	require.NoError(t, ch.Publish(events.NewError("done")))
	ch.Close()

	got := collect(t, ch.Subscribe(context.Background()), time.Second)
	require.Len(t, got, 2)
	assert.Equal(t, "only", got[0].Message)
	assert.True(t, got[1].Terminal())
}

func TestChannel_SlowConsumerDoesNotBlockProducer(t *testing.T) {
	t.Parallel()

	ch := NewChannel(2)

	// A subscriber that never reads must not stall the producer.
	_ = ch.Subscribe(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			_ = ch.Publish(events.NewLog(fmt.Sprintf("log %d", i)))
		}
		ch.Close()
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("producer blocked by slow consumer")
	}

	// A fresh subscriber still replays everything.
	got := collect(t, ch.Subscribe(context.Background()), 2*time.Second)
	assert.Len(t, got, 50)
}

func TestChannel_SubscriberStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	ch := NewChannel(10)
	ctx, cancel := context.WithCancel(context.Background())
	stream := ch.Subscribe(ctx)

	cancel()

	select {
	case _, ok := <-stream:
		assert.False(t, ok, "stream should close after context cancel")
	case <-time.After(time.Second):
		t.Fatal("stream did not close after context cancel")
	}
}
