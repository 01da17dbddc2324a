package scryfall

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"
)

func TestRateGate_SpacesSequentialGrants(t *testing.T) {
	g := NewRateGate(30 * time.Millisecond)
	ctx := context.Background()

	var grants []time.Time
	for i := 0; i < 3; i++ {
		if err := g.Acquire(ctx); err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
		grants = append(grants, time.Now())
	}
	for i := 1; i < len(grants); i++ {
		if d := grants[i].Sub(grants[i-1]); d < 25*time.Millisecond {
			t.Fatalf("grants %d and %d only %v apart", i-1, i, d)
		}
	}
}

func TestRateGate_ConcurrentCallersNeverOverlap(t *testing.T) {
	const n = 5
	g := NewRateGate(20 * time.Millisecond)

	var (
		mu     sync.Mutex
		grants []time.Time
		wg     sync.WaitGroup
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := g.Acquire(context.Background()); err != nil {
				t.Errorf("acquire: %v", err)
				return
			}
			mu.Lock()
			grants = append(grants, time.Now())
			mu.Unlock()
		}()
	}
	wg.Wait()

	sort.Slice(grants, func(i, j int) bool { return grants[i].Before(grants[j]) })
	if len(grants) != n {
		t.Fatalf("got %d grants, want %d", len(grants), n)
	}
	for i := 1; i < n; i++ {
		if d := grants[i].Sub(grants[i-1]); d < 15*time.Millisecond {
			t.Fatalf("concurrent grants %d and %d only %v apart", i-1, i, d)
		}
	}
}

func TestRateGate_CancelledContextDoesNotRecordGrant(t *testing.T) {
	g := NewRateGate(time.Second)
	if err := g.Acquire(context.Background()); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	before := g.lastGrant

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := g.Acquire(ctx); err == nil {
		t.Fatal("expected context error from second acquire")
	}
	if !g.lastGrant.Equal(before) {
		t.Fatal("cancelled acquire must not update the grant time")
	}
}

func TestNewRateGate_DefaultsNonPositiveInterval(t *testing.T) {
	g := NewRateGate(0)
	if g.interval != 100*time.Millisecond {
		t.Fatalf("interval = %v, want 100ms", g.interval)
	}
	g = NewRateGate(-time.Second)
	if g.interval != 100*time.Millisecond {
		t.Fatalf("interval = %v, want 100ms", g.interval)
	}
}
