package uistate

import (
	"sync"
	"testing"
)

func TestStore(t *testing.T) {
	s := NewStore("search")
	if s.IsOpen() {
		t.Fatal("new store should be closed")
	}

	s.Open()
	if !s.IsOpen() {
		t.Fatal("Open did not open")
	}
	s.Open()
	if !s.IsOpen() {
		t.Fatal("Open is not idempotent")
	}

	if got := s.Toggle(); got {
		t.Fatalf("Toggle() = %v, want false", got)
	}
	if got := s.Toggle(); !got {
		t.Fatalf("Toggle() = %v, want true", got)
	}

	s.Close()
	if s.IsOpen() {
		t.Fatal("Close did not close")
	}
}

func TestStoreSubscribe(t *testing.T) {
	s := NewStore("settings")
	ch, unsubscribe := s.Subscribe()

	if got := <-ch; got {
		t.Fatalf("initial state = %v, want false", got)
	}

	s.Open()
	if got := <-ch; !got {
		t.Fatalf("after Open = %v, want true", got)
	}

	// Setting the same state again does not notify.
	s.Open()
	select {
	case v := <-ch:
		t.Fatalf("unexpected notification %v", v)
	default:
	}

	// A slow reader only sees the latest state.
	s.Toggle()
	s.Toggle()
	s.Toggle()
	if got := <-ch; got {
		t.Fatalf("latest state = %v, want false", got)
	}

	unsubscribe()
	unsubscribe()
	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed after unsubscribe")
	}

	// Changes after unsubscribing must not panic.
	s.Toggle()
}

func TestStoreConcurrentToggle(t *testing.T) {
	s := NewStore("search")

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Toggle()
		}()
	}
	wg.Wait()

	if s.IsOpen() {
		t.Fatal("an even number of toggles should leave the store closed")
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry("search")

	a := r.For("user-a")
	if r.For("user-a") != a {
		t.Fatal("For should return the same store for a user")
	}

	a.Open()
	if r.For("user-b").IsOpen() {
		t.Fatal("stores must not be shared between users")
	}
	if a.Name() != "search" {
		t.Fatalf("Name() = %q", a.Name())
	}
}
