// Package sse implements a Server-Sent Events broker for identifier updates.
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/starford/trihash/internal/trigger"
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Broker manages SSE client connections and broadcasts events.
//
// Concurrency model: a single internal event loop (goroutine) owns mutable state
// (clients + frames throttle). Public methods communicate with this loop
// through channels, so no mutexes are required.
type Broker struct {
	framesMin time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	broadcastCh   chan Event
	triggerCh     chan trigger.Event
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

var _ trigger.Publisher = (*Broker)(nil)

// NewBroker creates a new SSE broker. Frame reload events closer together
// than framesThrottle are coalesced into the latest one.
func NewBroker(framesThrottle time.Duration) *Broker {
	if framesThrottle <= 0 {
		framesThrottle = 2 * time.Second
	}

	b := &Broker{
		framesMin:     framesThrottle,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		broadcastCh:   make(chan Event, 256),
		triggerCh:     make(chan trigger.Event, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var (
		lastFrames    time.Time
		pendingFrames *Event
		framesTimer   *time.Timer
		framesTimerC  <-chan time.Time
	)

	broadcast := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		raw := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload))

		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// Client buffer full; skip to avoid blocking broker loop.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			if framesTimer != nil {
				framesTimer.Stop()
			}
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.broadcastCh:
			broadcast(event)

		case ev := <-b.triggerCh:
			event := toSSE(ev)
			if ev.Type != trigger.TypeFramesReloaded {
				broadcast(event)
				continue
			}
			now := time.Now()
			if wait := b.framesMin - now.Sub(lastFrames); wait > 0 {
				pendingFrames = &event
				if framesTimerC == nil {
					framesTimer = time.NewTimer(wait)
					framesTimerC = framesTimer.C
				}
				continue
			}
			lastFrames = now
			broadcast(event)

		case <-framesTimerC:
			framesTimerC = nil
			if pendingFrames != nil {
				lastFrames = time.Now()
				broadcast(*pendingFrames)
				pendingFrames = nil
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

func toSSE(ev trigger.Event) Event {
	switch ev.Type {
	case trigger.TypeIdentifiers:
		return Event{Type: ev.Type, Data: map[string]any{
			"record_id":   ev.RecordID,
			"identifiers": strings.Fields(ev.Payload),
		}}
	case trigger.TypeFramesReloaded:
		return Event{Type: ev.Type, Data: map[string]string{"checksum": ev.FramesChecksum}}
	default:
		return Event{Type: ev.Type, Data: map[string]string{"record_id": ev.RecordID}}
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Broadcast sends an event to all connected clients as is.
func (b *Broker) Broadcast(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.broadcastCh <- event:
	case <-b.stopped:
	}
}

// Publish forwards a trigger event to connected clients. Frame reloads are
// throttled. A closed broker drops events silently.
func (b *Broker) Publish(ctx context.Context, ev trigger.Event) error {
	if b.closed.Load() {
		return nil
	}
	select {
	case b.triggerCh <- ev:
		return nil
	case <-b.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
