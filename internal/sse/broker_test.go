package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/trihash/internal/trigger"
)

func drain(ch chan []byte, wait time.Duration) []string {
	var out []string
	deadline := time.After(wait)
	for {
		select {
		case msg := <-ch:
			out = append(out, string(msg))
		case <-deadline:
			return out
		}
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestBroadcastDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Broadcast(Event{Type: "custom", Data: map[string]string{"k": "v"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: custom") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"k":"v"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishIdentifiers(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	id := strings.Repeat("Z", 48)
	err := b.Publish(context.Background(), trigger.Event{
		Type:     trigger.TypeIdentifiers,
		RecordID: "rec-1",
		Payload:  id + "\n",
	})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: identifiers.written") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"record_id":"rec-1"`) || !strings.Contains(s, `"identifiers":["`+id+`"]`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishFramesThrottle(t *testing.T) {
	b := NewBroker(200 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ctx := context.Background()
	// First reload is delivered at once, the next two collapse into the last.
	for _, sum := range []string{"one", "two", "three"} {
		if err := b.Publish(ctx, trigger.Event{Type: trigger.TypeFramesReloaded, FramesChecksum: sum}); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}
	// Record events are never throttled.
	_ = b.Publish(ctx, trigger.Event{Type: trigger.TypeRecordDeleted, RecordID: "r"})

	msgs := drain(ch, 500*time.Millisecond)

	var frames []string
	deleted := 0
	for _, m := range msgs {
		switch {
		case strings.Contains(m, "event: frames.reloaded"):
			frames = append(frames, m)
		case strings.Contains(m, "event: record.deleted"):
			deleted++
		}
	}
	if deleted != 1 {
		t.Errorf("record events = %d, want 1", deleted)
	}
	if len(frames) != 2 {
		t.Fatalf("frames events = %d, want 2 (throttled): %q", len(frames), frames)
	}
	if !strings.Contains(frames[0], `"checksum":"one"`) {
		t.Errorf("first frames event = %q", frames[0])
	}
	if !strings.Contains(frames[1], `"checksum":"three"`) {
		t.Errorf("trailing frames event = %q, want latest checksum", frames[1])
	}
}

func TestPublishHonoursContext(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// The buffered channel may still accept the event; either outcome is valid
	// as long as the call does not block.
	err := b.Publish(ctx, trigger.Event{Type: trigger.TypeRecordDeleted})
	if err != nil && err != context.Canceled {
		t.Fatalf("Publish: %v", err)
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	// Give handler time to subscribe.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	_ = b.Publish(context.Background(), trigger.Event{Type: trigger.TypeRecordDeleted, RecordID: "x"})
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "event: record.deleted") {
		t.Errorf("handler output missing event: %q", body)
	}
	if got := w.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Errorf("Content-Type = %q", got)
	}

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestBroadcastDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Fill buffer (capacity 64) and then one more should not block.
	for i := 0; i < 70; i++ {
		b.Broadcast(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	// Should be safe no-op after close.
	b.Broadcast(Event{Type: "x"})
	if err := b.Publish(context.Background(), trigger.Event{Type: trigger.TypeRecordDeleted}); err != nil {
		t.Fatalf("Publish after close: %v", err)
	}
	b.Close()
}
