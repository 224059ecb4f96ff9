package eventbus

import (
	"sync"
	"testing"
	"time"
)

func TestPublishDeliversToObserver(t *testing.T) {
	b := New(4)
	defer b.Close()

	received := make(chan Event, 1)
	b.Start(func(ev Event) { received <- ev })

	b.Publish(Event{Kind: KindStateChange, EntityID: "transport", Value: "playing"})

	select {
	case ev := <-received:
		if ev.Kind != KindStateChange || ev.EntityID != "transport" {
			t.Fatalf("got %+v, want state change for transport", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event delivery")
	}
}

func TestPublishNeverBlocksOnFullBuffer(t *testing.T) {
	b := New(1)
	defer b.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			b.Publish(Event{Kind: KindPropertyChange})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full, undrained buffer")
	}
}

func TestStartIsIdempotent(t *testing.T) {
	b := New(4)
	defer b.Close()

	var mu sync.Mutex
	count := 0
	b.Start(func(Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	b.Start(func(Event) {
		mu.Lock()
		count += 1000
		mu.Unlock()
	})

	b.Publish(Event{Kind: KindClipAdded})
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if count != 1 {
		t.Fatalf("count = %d, want 1 (second Start should be a no-op)", count)
	}
}

func TestCloseStopsDispatch(t *testing.T) {
	b := New(4)
	b.Start(func(Event) {})
	b.Close()

	done := make(chan struct{})
	go func() {
		b.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("second Close did not return")
	}
}

func TestNewDefaultsNonPositiveCapacity(t *testing.T) {
	b := New(0)
	defer b.Close()
	if cap(b.ch) != 64 {
		t.Fatalf("cap(ch) = %d, want 64", cap(b.ch))
	}
}
