package recon

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/conversationai/perspective-modbot/internal/domain"
	"github.com/conversationai/perspective-modbot/internal/logger"
	"github.com/conversationai/perspective-modbot/internal/logstore"
	"github.com/conversationai/perspective-modbot/internal/telemetry"
)

// Options configures a reconciliation run.
type Options struct {
	// MaxBatchSize caps records per status lookup; clamped to MaxMultiGet.
	MaxBatchSize int
	// MaxBatchDelay bounds how long a partial batch may sit unflushed.
	MaxBatchDelay time.Duration
	// WaitDelta is how old a batch's youngest record must be before its
	// status lookup runs. Moderators need time to act; checking too early
	// records a status that will still change.
	WaitDelta time.Duration
	// HasModCreds marks the status source as moderator-authenticated, which
	// changes how approved/removed are derived.
	HasModCreds bool
	// DropUnreconciled discards records whose status lookup failed instead
	// of writing them unaugmented.
	DropUnreconciled bool
	// StopAtEOF ends the run when the input is exhausted instead of
	// tailing for more records.
	StopAtEOF bool
}

// Pipeline reads scored records, batches them, waits until each batch is
// old enough to have a stable moderation status, looks the batch up, and
// writes merged records to the output log.
type Pipeline struct {
	src     *Source
	status  StatusSource
	out     *logstore.Appender
	opts    Options
	batcher *Batcher
	logger  logger.Logger
	metrics *telemetry.Metrics

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewPipeline wires a reconciliation pipeline.
func NewPipeline(
	src *Source,
	status StatusSource,
	out *logstore.Appender,
	opts Options,
	log logger.Logger,
	metrics *telemetry.Metrics,
) *Pipeline {
	if opts.MaxBatchSize <= 0 || opts.MaxBatchSize > MaxMultiGet {
		opts.MaxBatchSize = MaxMultiGet
	}
	return &Pipeline{
		src:     src,
		status:  status,
		out:     out,
		opts:    opts,
		batcher: NewBatcher(opts.MaxBatchSize, opts.MaxBatchDelay, time.Now()),
		logger:  log,
		metrics: metrics,
		now:     time.Now,
		sleep:   sleepCtx,
	}
}

// Run processes the input until it ends (StopAtEOF) or ctx is canceled.
// resume holds comment ids already present in the output log; the matching
// input lines are skipped before any new work starts.
func (p *Pipeline) Run(ctx context.Context, resume map[string]bool) error {
	if len(resume) > 0 {
		if err := SkipSeen(p.src, resume); err != nil {
			return err
		}
		p.logger.Info("resumed past already-processed records",
			logger.Int("skipped", len(resume)),
			logger.Int64("offset", p.src.Offset()))
	}

	tick := p.batcher.TickInterval()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, err := p.src.Next()
		switch {
		case err == nil:
			if err := p.ingest(ctx, line); err != nil {
				return err
			}
		case errors.Is(err, ErrNoData):
			if p.opts.StopAtEOF {
				if batch, ok := p.batcher.Drain(p.now()); ok {
					if err := p.processBatch(ctx, batch, "drain"); err != nil {
						return err
					}
				}
				p.logger.Info("input exhausted, stopping")
				return nil
			}
			if err := p.sleep(ctx, tick); err != nil {
				return err
			}
		default:
			return err
		}

		if batch, ok := p.batcher.TryFlush(p.now()); ok {
			if err := p.processBatch(ctx, batch, "delay"); err != nil {
				return err
			}
		}
	}
}

// ingest parses one input line and pushes it into the batcher. A malformed
// line is logged and dropped; one bad record must not halt the run.
func (p *Pipeline) ingest(ctx context.Context, line []byte) error {
	var rec domain.ScoredRecord
	if err := rec.UnmarshalJSON(line); err != nil {
		p.logger.Error("malformed record line, dropping", logger.Error(err))
		p.metrics.ReconcileAnomalies.WithLabelValues("malformed_line").Inc()
		return nil
	}
	if batch, ok := p.batcher.Push(&rec, p.now()); ok {
		return p.processBatch(ctx, batch, "size")
	}
	return nil
}

// processBatch waits out the youngest record's age requirement, fetches
// statuses, merges, and appends. Only context cancellation and output
// write failures are returned; lookup failures degrade to unreconciled
// records.
func (p *Pipeline) processBatch(ctx context.Context, batch []*domain.ScoredRecord, trigger string) error {
	batchID := uuid.NewString()
	p.metrics.BatchesFlushed.WithLabelValues(trigger).Inc()
	p.metrics.BatchSize.Observe(float64(len(batch)))
	p.logger.Info("flushing batch",
		logger.String("batch_id", batchID),
		logger.String("trigger", trigger),
		logger.Int("size", len(batch)))

	if err := p.waitUntilStable(ctx, batch, batchID); err != nil {
		return err
	}

	ids := make([]string, len(batch))
	for i, rec := range batch {
		ids[i] = rec.CommentID
	}
	statuses, err := p.status.MultiGet(ctx, ids)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// The batch still gets written; records come out unreconciled so a
		// later pass can retry them.
		p.logger.Error("status lookup failed for whole batch",
			logger.String("batch_id", batchID),
			logger.Error(err))
		statuses = nil
	}

	res := mergeStatuses(batch, statuses, p.opts.HasModCreds, p.now())
	for _, id := range res.unexpected {
		p.logger.Warn("status response for id not in batch",
			logger.String("batch_id", batchID),
			logger.String("comment_id", id))
		p.metrics.ReconcileAnomalies.WithLabelValues("unexpected_id").Inc()
	}
	for _, id := range res.missing {
		p.logger.Warn("no status returned for batch record",
			logger.String("batch_id", batchID),
			logger.String("comment_id", id))
		p.metrics.ReconcileAnomalies.WithLabelValues("missing_status").Inc()
	}

	for _, rec := range res.records {
		if !rec.Reconciled && p.opts.DropUnreconciled {
			continue
		}
		if err := p.out.Append(rec); err != nil {
			return err
		}
		p.metrics.RecordsReconciled.Inc()
	}
	return nil
}

// waitUntilStable sleeps until the batch's youngest record is at least
// WaitDelta old. Batches arrive in log order, so waiting on the youngest
// covers the whole batch.
func (p *Pipeline) waitUntilStable(ctx context.Context, batch []*domain.ScoredRecord, batchID string) error {
	var youngest time.Time
	for _, rec := range batch {
		if rec.CreatedUTC.After(youngest) {
			youngest = rec.CreatedUTC
		}
	}

	wait := youngest.Add(p.opts.WaitDelta).Sub(p.now())
	if wait <= 0 {
		return nil
	}
	p.logger.Info("waiting for batch to stabilize",
		logger.String("batch_id", batchID),
		logger.Duration("wait", wait))
	p.metrics.ReconcileWait.Observe(wait.Seconds())
	return p.sleep(ctx, wait)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
