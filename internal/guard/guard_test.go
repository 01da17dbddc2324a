package guard

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		UserCooldown:    3 * time.Second,
		DuplicateWindow: 2500 * time.Millisecond,
		SweepInterval:   time.Minute,
		Retention:       5 * time.Minute,
		ProcessedIDCap:  1000,
		ProcessedIDKeep: 500,
	}
}

func TestAdmit_DuplicateDeliveryRejected(t *testing.T) {
	g := New(testConfig())
	now := time.Now()

	if ok, _ := g.Admit("u1", 42, "bolt", now); !ok {
		t.Fatal("first delivery must be admitted")
	}
	ok, reason := g.Admit("u1", 42, "bolt", now.Add(10*time.Second))
	if ok || reason != ReasonDuplicateDelivery {
		t.Fatalf("redelivered id: ok=%v reason=%q", ok, reason)
	}
}

func TestAdmit_UserCooldown(t *testing.T) {
	g := New(testConfig())
	now := time.Now()

	if ok, _ := g.Admit("u1", 1, "bolt", now); !ok {
		t.Fatal("first command must be admitted")
	}
	ok, reason := g.Admit("u1", 2, "counterspell", now.Add(time.Second))
	if ok || reason != ReasonUserCooldown {
		t.Fatalf("within cooldown: ok=%v reason=%q", ok, reason)
	}
	if ok, _ := g.Admit("u1", 3, "counterspell", now.Add(3100*time.Millisecond)); !ok {
		t.Fatal("command after cooldown must be admitted")
	}
}

func TestAdmit_CooldownIsPerUser(t *testing.T) {
	g := New(testConfig())
	now := time.Now()

	if ok, _ := g.Admit("u1", 1, "bolt", now); !ok {
		t.Fatal("u1 must be admitted")
	}
	if ok, _ := g.Admit("u2", 2, "bolt", now); !ok {
		t.Fatal("u2 must not share u1's cooldown")
	}
}

func TestAdmit_DuplicateTextWindow(t *testing.T) {
	cfg := testConfig()
	// Shrink the cooldown so the text window is the binding constraint.
	cfg.UserCooldown = 100 * time.Millisecond
	g := New(cfg)
	now := time.Now()

	if ok, _ := g.Admit("u1", 1, "bolt", now); !ok {
		t.Fatal("first command must be admitted")
	}
	ok, reason := g.Admit("u1", 2, "  BOLT ", now.Add(time.Second))
	if ok || reason != ReasonDuplicateText {
		t.Fatalf("identical normalized text within window: ok=%v reason=%q", ok, reason)
	}
	if ok, _ := g.Admit("u1", 3, "bolt", now.Add(2600*time.Millisecond)); !ok {
		t.Fatal("same text after the window must be admitted")
	}
}

func TestAdmit_DifferentTextInsideWindowAdmitted(t *testing.T) {
	cfg := testConfig()
	cfg.UserCooldown = 100 * time.Millisecond
	g := New(cfg)
	now := time.Now()

	if ok, _ := g.Admit("u1", 1, "bolt", now); !ok {
		t.Fatal("first command must be admitted")
	}
	if ok, _ := g.Admit("u1", 2, "counterspell", now.Add(time.Second)); !ok {
		t.Fatal("different text must not hit the duplicate window")
	}
}

func TestSweep_TruncatesProcessedIDsByArrivalOrder(t *testing.T) {
	cfg := testConfig()
	cfg.UserCooldown = time.Millisecond
	g := New(cfg)
	now := time.Now()

	// 1001 admitted events from distinct users, arrival order = id order.
	for i := 0; i < 1001; i++ {
		user := fmt.Sprintf("u%d", i)
		if ok, reason := g.Admit(user, int64(i), fmt.Sprintf("q%d", i), now.Add(time.Duration(i)*time.Millisecond)); !ok {
			t.Fatalf("event %d rejected: %s", i, reason)
		}
	}
	if len(g.processed) != 1001 {
		t.Fatalf("processed = %d before sweep", len(g.processed))
	}

	g.sweep(now.Add(2 * time.Second))

	if len(g.processed) != 500 {
		t.Fatalf("processed = %d after sweep, want 500", len(g.processed))
	}
	// The survivors are the 500 most recently admitted: ids 501..1000.
	for id := int64(501); id <= 1000; id++ {
		if _, ok := g.processed[id]; !ok {
			t.Fatalf("id %d missing after truncation", id)
		}
	}
	if _, ok := g.processed[500]; ok {
		t.Fatal("id 500 must have been evicted")
	}
}

func TestSweep_NoTruncationUnderCap(t *testing.T) {
	g := New(testConfig())
	now := time.Now()

	for i := 0; i < 10; i++ {
		g.Admit(fmt.Sprintf("u%d", i), int64(i), "bolt", now)
	}
	g.sweep(now.Add(time.Second))
	if len(g.processed) != 10 {
		t.Fatalf("processed = %d, want 10", len(g.processed))
	}
}

func TestSweep_EvictsStaleTimestampEntries(t *testing.T) {
	g := New(testConfig())
	now := time.Now()

	g.Admit("u1", 1, "bolt", now)
	g.Admit("u2", 2, "counterspell", now.Add(4*time.Minute))

	g.sweep(now.Add(6 * time.Minute))

	if len(g.recent) != 1 {
		t.Fatalf("recent = %d, want only the fresh entry", len(g.recent))
	}
	if _, ok := g.users["u1"]; ok {
		t.Fatal("stale user entry must be evicted")
	}
	if _, ok := g.users["u2"]; !ok {
		t.Fatal("fresh user entry must survive")
	}
}

func TestRun_StopsOnCancellation(t *testing.T) {
	cfg := testConfig()
	cfg.SweepInterval = 5 * time.Millisecond
	g := New(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- g.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v on cancellation", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}

func TestNew_AppliesDefaults(t *testing.T) {
	g := New(Config{})
	if g.cfg.UserCooldown != 3*time.Second {
		t.Fatalf("cooldown = %v", g.cfg.UserCooldown)
	}
	if g.cfg.DuplicateWindow != 2500*time.Millisecond {
		t.Fatalf("window = %v", g.cfg.DuplicateWindow)
	}
	if g.cfg.ProcessedIDCap != 1000 || g.cfg.ProcessedIDKeep != 500 {
		t.Fatalf("cap/keep = %d/%d", g.cfg.ProcessedIDCap, g.cfg.ProcessedIDKeep)
	}
}
