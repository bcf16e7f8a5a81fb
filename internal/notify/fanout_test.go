package notify

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(noopWriter{}, nil))
}

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestFanOut_BroadcastDeliversToAllSubscribers(t *testing.T) {
	f := NewFanOut(testLogger())
	a := f.Subscribe()
	b := f.Subscribe()

	f.Broadcast("configuration/changed", map[string]any{"provider": "openai"})

	select {
	case msg := <-a.Receive():
		assert.Equal(t, "configuration/changed", msg.Method)
	case <-time.After(time.Second):
		t.Fatal("subscriber a did not receive broadcast")
	}

	select {
	case msg := <-b.Receive():
		assert.Equal(t, "configuration/changed", msg.Method)
	case <-time.After(time.Second):
		t.Fatal("subscriber b did not receive broadcast")
	}
}

func TestFanOut_UnsubscribeStopsDelivery(t *testing.T) {
	f := NewFanOut(testLogger())
	sub := f.Subscribe()
	f.Unsubscribe(sub)

	f.Broadcast("ping", nil)

	_, ok := <-sub.Receive()
	assert.False(t, ok, "channel should be closed after unsubscribe")
}

func TestFanOut_UnsubscribeIsIdempotent(t *testing.T) {
	f := NewFanOut(testLogger())
	sub := f.Subscribe()
	f.Unsubscribe(sub)
	assert.NotPanics(t, func() { f.Unsubscribe(sub) })
}

func TestFanOut_FullMailboxDropsSubscriberWithoutBlocking(t *testing.T) {
	f := NewFanOut(testLogger())
	sub := f.Subscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			f.Broadcast("ping", nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked on a full subscriber mailbox")
	}

	assert.Equal(t, 0, f.Count())
	_ = sub
}

func TestFanOut_Count(t *testing.T) {
	f := NewFanOut(testLogger())
	require.Equal(t, 0, f.Count())

	sub := f.Subscribe()
	require.Equal(t, 1, f.Count())

	f.Unsubscribe(sub)
	require.Equal(t, 0, f.Count())
}

func TestFanOut_RunKeepalive_StopsOnContextCancel(t *testing.T) {
	f := NewFanOut(testLogger())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		f.RunKeepalive(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunKeepalive did not stop after context cancellation")
	}
}
