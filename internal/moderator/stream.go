package moderator

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/conversationai/perspective-modbot/internal/domain"
	"github.com/conversationai/perspective-modbot/internal/logger"
	"github.com/conversationai/perspective-modbot/internal/logstore"
	"github.com/conversationai/perspective-modbot/internal/rules"
	"github.com/conversationai/perspective-modbot/internal/scoring"
	"github.com/conversationai/perspective-modbot/internal/telemetry"
)

// CommentStream yields comments from the platform. Implementations may
// silently redeliver up to ~100 already-seen items after a reconnect; the
// moderator deduplicates behind a bounded window. Next returns io.EOF when
// a finite stream is exhausted.
type CommentStream interface {
	Next(ctx context.Context) (domain.Comment, error)
}

// Scorer scores a text against the requested models.
type Scorer interface {
	ScoreText(ctx context.Context, text string, models []string, language string) (rules.ScoreMap, error)
}

// Options configures the moderation loop.
type Options struct {
	// Language of the stream's comments; empty lets the scorer auto-detect.
	Language string
	// DedupWindow is the number of recent comment ids remembered.
	DedupWindow int
	// ApplyActions enables external side effects for fired rules. Leave
	// false when the bot lacks moderator permissions.
	ApplyActions bool
}

// Moderator drives the stream → score → evaluate → act → log loop.
type Moderator struct {
	stream     CommentStream
	scorer     Scorer
	evaluator  *Evaluator
	dispatcher *Dispatcher
	out        *logstore.Appender
	ruleSet    *rules.RuleSet
	dedup      *DedupWindow
	opts       Options
	logger     logger.Logger
	metrics    *telemetry.Metrics

	now func() time.Time
}

// New creates a moderator.
func New(
	stream CommentStream,
	scorer Scorer,
	rs *rules.RuleSet,
	dispatcher *Dispatcher,
	out *logstore.Appender,
	opts Options,
	log logger.Logger,
	metrics *telemetry.Metrics,
) *Moderator {
	return &Moderator{
		stream:     stream,
		scorer:     scorer,
		evaluator:  NewEvaluator(rs),
		dispatcher: dispatcher,
		out:        out,
		ruleSet:    rs,
		dedup:      NewDedupWindow(opts.DedupWindow),
		opts:       opts,
		logger:     log,
		metrics:    metrics,
		now:        time.Now,
	}
}

// Run consumes the stream until it ends or ctx is canceled. Per-comment
// failures are logged and skipped; only stream-level failures are returned.
func (m *Moderator) Run(ctx context.Context) error {
	for {
		comment, err := m.stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			m.logger.Info("comment stream exhausted")
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		m.processComment(ctx, comment)
	}
}

func (m *Moderator) processComment(ctx context.Context, comment domain.Comment) {
	if m.dedup.Seen(comment.ID) {
		m.metrics.CommentsSkipped.WithLabelValues("duplicate").Inc()
		return
	}
	if scoring.TooLong(comment.Body) {
		m.logger.Warn("comment too long, skipping",
			logger.String("comment_id", comment.ID),
			logger.Int("length", len(comment.Body)))
		m.metrics.CommentsSkipped.WithLabelValues("too_long").Inc()
		return
	}

	start := m.now()
	scores, err := m.scorer.ScoreText(ctx, comment.Body, m.ruleSet.APIModels, m.opts.Language)
	if err != nil {
		m.logger.Error("scoring failed, skipping comment",
			logger.String("comment_id", comment.ID),
			logger.Error(err))
		m.metrics.CommentsSkipped.WithLabelValues("score_error").Inc()
		return
	}
	m.metrics.ObserveScore(m.now().Sub(start))
	m.metrics.CommentsScored.Inc()

	eval, err := m.evaluator.Evaluate(scores, domain.FeaturesOf(comment))
	if err != nil {
		m.logger.Error("evaluation failed, skipping comment",
			logger.String("comment_id", comment.ID),
			logger.Error(err))
		m.metrics.CommentsSkipped.WithLabelValues("eval_error").Inc()
		return
	}

	record := domain.ScoredRecord{
		CommentID:       comment.ID,
		LinkID:          comment.LinkID,
		ParentID:        comment.ParentID,
		Subreddit:       comment.Subreddit,
		Permalink:       comment.Permalink,
		Author:          comment.Author,
		OrigCommentText: comment.Body,
		CreatedUTC:      comment.CreatedUTC,
		BotScoredUTC:    m.now(),
		Scores:          eval.Scores,
		RuleOutcomes:    eval.Outcomes,
	}
	if err := m.out.Append(record); err != nil {
		m.logger.Error("failed to append record", logger.Error(err))
	}

	for _, rule := range eval.Fired {
		m.metrics.RulesFired.WithLabelValues(rule.Name).Inc()
		m.logger.Info("rule fired",
			logger.String("rule", rule.Name),
			logger.String("action", string(rule.Action)),
			logger.String("comment_id", comment.ID),
			logger.String("subreddit", comment.Subreddit))
	}
	m.applyActions(ctx, comment, eval.Fired)
}

// applyActions dispatches every fired rule's action. Failures are logged
// and the stream continues; dispatch is best-effort per comment.
func (m *Moderator) applyActions(ctx context.Context, comment domain.Comment, fired []*rules.Rule) {
	if !m.opts.ApplyActions {
		return
	}
	for _, rule := range fired {
		var reasons []string
		if rule.ReportReason != "" {
			reasons = []string{rule.ReportReason}
		}
		if err := m.dispatcher.Apply(ctx, rule.Action, comment.ID, reasons); err != nil {
			m.logger.Error("failed to apply action",
				logger.String("rule", rule.Name),
				logger.String("action", string(rule.Action)),
				logger.String("comment_id", comment.ID),
				logger.Error(err))
			m.metrics.ActionFailures.Inc()
			continue
		}
		m.metrics.ActionsApplied.WithLabelValues(string(rule.Action)).Inc()
	}
}
