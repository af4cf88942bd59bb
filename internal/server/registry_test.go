package server

import (
	"sort"
	"sync"
	"testing"
)

func TestRegistryAddRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	if !r.Add("alice", &Session{}) {
		t.Fatal("first Add lost")
	}
	if r.Add("alice", &Session{}) {
		t.Fatal("duplicate Add won")
	}
	if r.Len() != 1 {
		t.Fatalf("len = %d, want 1", r.Len())
	}
}

func TestRegistryRemove(t *testing.T) {
	r := NewRegistry()
	r.Add("alice", &Session{})
	r.Remove("alice")
	r.Remove("alice") // absent name is a no-op

	if _, ok := r.Get("alice"); ok {
		t.Fatal("removed name still resolves")
	}
	if !r.Add("alice", &Session{}) {
		t.Fatal("name not reusable after Remove")
	}
}

func TestRegistryNames(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"carol", "alice", "bob"} {
		r.Add(name, &Session{})
	}
	names := r.Names()
	sort.Strings(names)
	want := []string{"alice", "bob", "carol"}
	if len(names) != len(want) {
		t.Fatalf("names = %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names = %v, want %v", names, want)
		}
	}
}

func TestRegistryConcurrentAddSingleWinner(t *testing.T) {
	r := NewRegistry()
	const racers = 16

	var wg sync.WaitGroup
	wins := make(chan bool, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			wins <- r.Add("alice", &Session{})
		}()
	}
	wg.Wait()
	close(wins)

	won := 0
	for w := range wins {
		if w {
			won++
		}
	}
	if won != 1 {
		t.Fatalf("%d racers won, want 1", won)
	}
}
