package hub

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeTransport records received notifications. Send can be made to fail or
// block past the hub's send timeout.
type fakeTransport struct {
	mu       sync.Mutex
	received []Notification
	closed   atomic.Bool

	sendErr error
	delay   time.Duration
}

func (f *fakeTransport) Send(ctx context.Context, n Notification) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	f.received = append(f.received, n)
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) Close() error {
	f.closed.Store(true)
	return nil
}

func (f *fakeTransport) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.received)
}

// TestHub_RegisterUnregister tests basic connection lifecycle.
func TestHub_RegisterUnregister(t *testing.T) {
	h := NewHub(nil)
	defer h.Close()

	ft := &fakeTransport{}
	id := h.Register(ft)
	if id == "" {
		t.Fatal("Register returned empty id")
	}
	if h.Count() != 1 {
		t.Errorf("Count = %d, want 1", h.Count())
	}

	h.Unregister(id)
	if h.Count() != 0 {
		t.Errorf("Count = %d, want 0", h.Count())
	}
	if !ft.closed.Load() {
		t.Error("Unregister did not close the transport")
	}

	// Unknown and repeated ids are ignored
	h.Unregister(id)
	h.Unregister("no-such-id")
}

// TestHub_Broadcast tests fan-out to all registered connections.
func TestHub_Broadcast(t *testing.T) {
	h := NewHub(nil)
	defer h.Close()

	transports := make([]*fakeTransport, 5)
	for i := range transports {
		transports[i] = &fakeTransport{}
		h.Register(transports[i])
	}

	h.Broadcast(Notification{Type: "event.created"})
	h.Broadcast(Notification{Type: "alert.created"})

	for i, ft := range transports {
		if got := ft.count(); got != 2 {
			t.Errorf("transport %d received %d notifications, want 2", i, got)
		}
	}
}

// TestHub_BroadcastEvictsFailing tests that a failing connection is dropped
// while the healthy ones still receive the notification.
func TestHub_BroadcastEvictsFailing(t *testing.T) {
	h := NewHub(nil)
	defer h.Close()

	bad := &fakeTransport{sendErr: errors.New("connection reset")}
	h.Register(bad)

	good := make([]*fakeTransport, 49)
	for i := range good {
		good[i] = &fakeTransport{}
		h.Register(good[i])
	}

	h.Broadcast(Notification{Type: "event.created"})

	for i, ft := range good {
		if got := ft.count(); got != 1 {
			t.Errorf("healthy transport %d received %d, want 1", i, got)
		}
	}
	if h.Count() != 49 {
		t.Errorf("Count = %d after eviction, want 49", h.Count())
	}
	if !bad.closed.Load() {
		t.Error("failing transport was not closed")
	}
}

// TestHub_BroadcastEvictsSlow tests that a connection blocking past the send
// timeout is evicted without delaying delivery to the rest.
func TestHub_BroadcastEvictsSlow(t *testing.T) {
	h := NewHub(&Options{SendTimeout: 20 * time.Millisecond})
	defer h.Close()

	slow := &fakeTransport{delay: time.Second}
	h.Register(slow)
	fast := &fakeTransport{}
	h.Register(fast)

	start := time.Now()
	h.Broadcast(Notification{Type: "event.created"})
	elapsed := time.Since(start)

	if elapsed > 500*time.Millisecond {
		t.Errorf("broadcast took %s, slow connection delayed the fan-out", elapsed)
	}
	if got := fast.count(); got != 1 {
		t.Errorf("fast transport received %d, want 1", got)
	}
	if h.Count() != 1 {
		t.Errorf("Count = %d after timeout eviction, want 1", h.Count())
	}
	if !slow.closed.Load() {
		t.Error("slow transport was not closed")
	}
}

// TestHub_Close tests that a closed hub rejects registrations and drops
// broadcasts.
func TestHub_Close(t *testing.T) {
	h := NewHub(nil)

	ft := &fakeTransport{}
	h.Register(ft)

	h.Close()
	if !ft.closed.Load() {
		t.Error("Close did not close registered transport")
	}
	if h.Count() != 0 {
		t.Errorf("Count = %d after Close, want 0", h.Count())
	}

	late := &fakeTransport{}
	if id := h.Register(late); id != "" {
		t.Errorf("Register on closed hub returned id %q, want empty", id)
	}
	if !late.closed.Load() {
		t.Error("Register on closed hub did not close the transport")
	}

	h.Broadcast(Notification{Type: "event.created"})
	if got := ft.count(); got != 0 {
		t.Errorf("closed hub delivered %d notifications", got)
	}

	// Close is idempotent
	h.Close()
}

// TestHub_ConcurrentAccess exercises registration, broadcast, and
// unregistration racing each other.
func TestHub_ConcurrentAccess(t *testing.T) {
	h := NewHub(&Options{SendTimeout: 50 * time.Millisecond})
	defer h.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := h.Register(&fakeTransport{})
			h.Broadcast(Notification{Type: "event.created"})
			h.Unregister(id)
		}()
	}
	wg.Wait()

	if h.Count() != 0 {
		t.Errorf("Count = %d after all unregistered, want 0", h.Count())
	}
}
