package recon

import (
	"fmt"
	"testing"
	"time"

	"github.com/conversationai/perspective-modbot/internal/domain"
)

func rec(id string) *domain.ScoredRecord {
	return &domain.ScoredRecord{CommentID: id}
}

func TestBatcher_SizeTrigger(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	b := NewBatcher(100, 5*time.Minute, now)

	var batches [][]*domain.ScoredRecord
	for i := 0; i < 250; i++ {
		if batch, ok := b.Push(rec(fmt.Sprintf("c%d", i)), now); ok {
			batches = append(batches, batch)
		}
	}
	// A burst of 250 splits on size alone: two full batches, 50 pending.
	if len(batches) != 2 {
		t.Fatalf("batches = %d, want 2", len(batches))
	}
	for i, batch := range batches {
		if len(batch) != 100 {
			t.Errorf("batch %d size = %d, want 100", i, len(batch))
		}
	}
	if b.Pending() != 50 {
		t.Errorf("pending = %d, want 50", b.Pending())
	}

	// The remainder only leaves on the delay trigger.
	if _, ok := b.TryFlush(now.Add(time.Minute)); ok {
		t.Error("flushed before the delay elapsed")
	}
	batch, ok := b.TryFlush(now.Add(6 * time.Minute))
	if !ok || len(batch) != 50 {
		t.Errorf("delay flush = %d records (ok=%v), want 50", len(batch), ok)
	}
}

func TestBatcher_DelayTrigger(t *testing.T) {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	b := NewBatcher(100, 5*time.Minute, start)

	// Three records with long idle gaps each flush alone, no later than the
	// delay after arrival.
	for i := 0; i < 3; i++ {
		arrival := start.Add(time.Duration(i) * time.Hour)
		if _, ok := b.Push(rec(fmt.Sprintf("c%d", i)), arrival); ok {
			t.Fatal("single record must not trigger a size flush")
		}
		batch, ok := b.TryFlush(arrival.Add(5*time.Minute + time.Second))
		if !ok || len(batch) != 1 {
			t.Fatalf("record %d: delay flush = %d (ok=%v), want 1", i, len(batch), ok)
		}
	}
}

func TestBatcher_IdleResetsDelayTimer(t *testing.T) {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	b := NewBatcher(100, 5*time.Minute, start)

	// A long empty stretch resets the timer, so a fresh record still gets a
	// full delay window instead of flushing immediately.
	if _, ok := b.TryFlush(start.Add(time.Hour)); ok {
		t.Fatal("empty batcher must not flush")
	}
	b.Push(rec("c0"), start.Add(time.Hour+time.Minute))
	if _, ok := b.TryFlush(start.Add(time.Hour + 2*time.Minute)); ok {
		t.Error("record flushed before its own delay window elapsed")
	}
}

func TestBatcher_Drain(t *testing.T) {
	now := time.Now()
	b := NewBatcher(100, 5*time.Minute, now)

	if _, ok := b.Drain(now); ok {
		t.Error("empty drain must report nothing")
	}
	b.Push(rec("c0"), now)
	b.Push(rec("c1"), now)
	batch, ok := b.Drain(now)
	if !ok || len(batch) != 2 {
		t.Errorf("drain = %d (ok=%v), want 2", len(batch), ok)
	}
	if b.Pending() != 0 {
		t.Errorf("pending after drain = %d", b.Pending())
	}
}

func TestBatcher_TickInterval(t *testing.T) {
	b := NewBatcher(100, 10*time.Minute, time.Now())
	if got := b.TickInterval(); got != 5*time.Minute {
		t.Errorf("TickInterval = %v, want half the delay", got)
	}
}
