// Package hub maintains the registry of live viewer connections and delivers
// best-effort broadcast notifications. Delivery is advisory: a send failure
// or timeout evicts the connection and never propagates to the caller.
package hub

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/good-yellow-bee/fleetwatch/internal/metrics"
)

// DefaultSendTimeout bounds each per-connection send during a broadcast.
const DefaultSendTimeout = 300 * time.Millisecond

// Transport is a send-capable viewer connection. Implementations must honor
// the context deadline; Send returning an error is terminal for the
// connection.
type Transport interface {
	Send(ctx context.Context, n Notification) error
	Close() error
}

// Options configures the hub.
type Options struct {
	// SendTimeout bounds each per-connection send.
	SendTimeout time.Duration
}

// Hub is the connection registry. It is created at process start, passed by
// reference to whoever needs to broadcast, and torn down at shutdown.
type Hub struct {
	mu          sync.RWMutex
	subs        map[string]Transport
	sendTimeout time.Duration
	closed      bool
}

// NewHub creates a hub with the given options.
func NewHub(opts *Options) *Hub {
	timeout := DefaultSendTimeout
	if opts != nil && opts.SendTimeout > 0 {
		timeout = opts.SendTimeout
	}
	return &Hub{
		subs:        make(map[string]Transport),
		sendTimeout: timeout,
	}
}

// Register adds a connection and returns its id. Registering on a closed hub
// closes the transport immediately and returns an empty id.
func (h *Hub) Register(t Transport) string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		t.Close()
		return ""
	}

	id := uuid.New().String()
	h.subs[id] = t
	metrics.HubConnections.Set(float64(len(h.subs)))
	return id
}

// Unregister removes and closes a connection. Idempotent: unknown ids are
// ignored.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	t, ok := h.subs[id]
	if ok {
		delete(h.subs, id)
		metrics.HubConnections.Set(float64(len(h.subs)))
	}
	h.mu.Unlock()

	if ok {
		t.Close()
	}
}

// Count returns the number of registered connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Broadcast delivers n to every currently registered connection. The
// subscriber set is snapshotted first, so connects and disconnects during the
// fan-out are safe and never wait on it. Each send runs concurrently under
// the send timeout; a failed or timed-out connection is evicted. Broadcast
// returns nothing: delivery failures must not be able to abort a caller.
func (h *Hub) Broadcast(n Notification) {
	type sub struct {
		id string
		t  Transport
	}

	h.mu.RLock()
	if h.closed {
		h.mu.RUnlock()
		return
	}
	snapshot := make([]sub, 0, len(h.subs))
	for id, t := range h.subs {
		snapshot = append(snapshot, sub{id: id, t: t})
	}
	h.mu.RUnlock()

	var wg sync.WaitGroup
	for _, s := range snapshot {
		wg.Add(1)
		go func(s sub) {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), h.sendTimeout)
			defer cancel()

			if err := s.t.Send(ctx, n); err != nil {
				log.Printf("hub: dropping connection %s after send failure: %v", s.id, err)
				metrics.HubSendFailures.Inc()
				h.Unregister(s.id)
				return
			}
			metrics.HubMessagesSent.Inc()
		}(s)
	}
	wg.Wait()
}

// Close tears down the hub, closing every connection. Further Broadcast
// calls are no-ops and further Register calls are rejected.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	subs := h.subs
	h.subs = make(map[string]Transport)
	metrics.HubConnections.Set(0)
	h.mu.Unlock()

	for _, t := range subs {
		t.Close()
	}
}
