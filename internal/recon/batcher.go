package recon

import (
	"time"

	"github.com/conversationai/perspective-modbot/internal/domain"
)

// Batcher accumulates records until either the size cap is reached or too
// much time has passed since the last flush. It is driven by the pipeline
// loop; all time comes in as arguments so tests can use a fake clock.
type Batcher struct {
	maxSize   int
	maxDelay  time.Duration
	pending   []*domain.ScoredRecord
	lastFlush time.Time
}

// NewBatcher creates a batcher. now seeds the delay timer so the first
// delay-triggered flush is measured from startup, not the zero time.
func NewBatcher(maxSize int, maxDelay time.Duration, now time.Time) *Batcher {
	return &Batcher{maxSize: maxSize, maxDelay: maxDelay, lastFlush: now}
}

// Push adds a record and returns a full batch when the size cap is hit.
func (b *Batcher) Push(rec *domain.ScoredRecord, now time.Time) ([]*domain.ScoredRecord, bool) {
	b.pending = append(b.pending, rec)
	if len(b.pending) >= b.maxSize {
		return b.flush(now), true
	}
	return nil, false
}

// TryFlush returns the pending records when the delay since the last flush
// has been exceeded. An empty pending set still resets the timer, so a
// record arriving after a long idle stretch gets a full delay window.
func (b *Batcher) TryFlush(now time.Time) ([]*domain.ScoredRecord, bool) {
	if now.Sub(b.lastFlush) <= b.maxDelay {
		return nil, false
	}
	if len(b.pending) == 0 {
		b.lastFlush = now
		return nil, false
	}
	return b.flush(now), true
}

// Drain flushes whatever is pending regardless of size or delay. Used at
// end of input.
func (b *Batcher) Drain(now time.Time) ([]*domain.ScoredRecord, bool) {
	if len(b.pending) == 0 {
		return nil, false
	}
	return b.flush(now), true
}

// Pending returns the number of buffered records.
func (b *Batcher) Pending() int {
	return len(b.pending)
}

// TickInterval is how often an idle pipeline should re-check the delay
// trigger. Half the delay keeps the worst-case flush lag within one extra
// tick of the configured delay.
func (b *Batcher) TickInterval() time.Duration {
	return b.maxDelay / 2
}

func (b *Batcher) flush(now time.Time) []*domain.ScoredRecord {
	batch := b.pending
	b.pending = nil
	b.lastFlush = now
	return batch
}
