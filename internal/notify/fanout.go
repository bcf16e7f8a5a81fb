// Package notify implements the notification fan-out (C9): a set of
// subscriber channels that every config mutation (C4) and tool registry
// change (C5) broadcasts to, plus the keepalive ping loop that keeps
// long-lived client connections (the websocket notifications endpoint)
// alive.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// KeepaliveInterval matches §8's ping cadence for idle notification
// connections.
const KeepaliveInterval = 30 * time.Second

// Message is one broadcast notification: an MCP notification method name
// plus its params, ready to be wrapped into a JSON-RPC notification object
// by whichever transport (websocket, SSE) owns the subscriber.
type Message struct {
	Method string
	Params any
}

// Subscriber is a single fan-out destination. Send must not block the
// broadcaster for long; FanOut enforces that by using a buffered channel
// and dropping (then removing) a subscriber that can't keep up.
type Subscriber struct {
	ch     chan Message
	closed bool
}

func newSubscriber(buffer int) *Subscriber {
	return &Subscriber{ch: make(chan Message, buffer)}
}

// Receive returns the channel a transport reads broadcast messages from.
func (s *Subscriber) Receive() <-chan Message { return s.ch }

// FanOut is the C9 broadcaster: any number of subscribers, non-blocking
// send, remove-on-send-failure. Follows the same mutex-guarded-struct
// idiom as the rest of this codebase's shared state (internal/middleware,
// internal/handlers), generalized to a multi-subscriber notification
// concept this gateway's predecessor proxy never needed.
type FanOut struct {
	mu          sync.Mutex
	subscribers map[*Subscriber]struct{}
	logger      *slog.Logger
}

func NewFanOut(logger *slog.Logger) *FanOut {
	return &FanOut{
		subscribers: make(map[*Subscriber]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a new subscriber with a bounded mailbox. Callers must
// Unsubscribe when done (typically via defer on connection close).
func (f *FanOut) Subscribe() *Subscriber {
	sub := newSubscriber(32)

	f.mu.Lock()
	f.subscribers[sub] = struct{}{}
	f.mu.Unlock()

	return sub
}

// Unsubscribe removes and closes a subscriber. Safe to call more than once.
func (f *FanOut) Unsubscribe(sub *Subscriber) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.subscribers[sub]; !ok {
		return
	}
	delete(f.subscribers, sub)

	if !sub.closed {
		sub.closed = true
		close(sub.ch)
	}
}

// Broadcast delivers a notification to every current subscriber. A
// subscriber whose mailbox is full is dropped from the set rather than
// allowed to stall the broadcaster (§8's "non-blocking broadcast,
// remove-on-send-failure" invariant); it is the transport's job to notice
// its channel closed and reconnect/resubscribe.
func (f *FanOut) Broadcast(method string, params any) {
	msg := Message{Method: method, Params: params}

	f.mu.Lock()
	defer f.mu.Unlock()

	for sub := range f.subscribers {
		select {
		case sub.ch <- msg:
		default:
			f.logger.Warn("notification subscriber dropped: mailbox full", "method", method)
			delete(f.subscribers, sub)
			if !sub.closed {
				sub.closed = true
				close(sub.ch)
			}
		}
	}
}

// Count reports the current subscriber count, mostly useful for tests and
// health reporting.
func (f *FanOut) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers)
}

// RunKeepalive broadcasts a `ping` notification every KeepaliveInterval
// until ctx is cancelled. Intended to run for the lifetime of the server
// process in its own goroutine.
func (f *FanOut) RunKeepalive(ctx context.Context) {
	ticker := time.NewTicker(KeepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.Broadcast("ping", nil)
		}
	}
}
