package platform

import (
	"context"

	"github.com/conversationai/perspective-modbot/internal/logger"
)

// DryRunExecutor logs the actions it would take instead of performing them.
// Used when the bot runs without write access to the platform, which keeps
// the whole evaluate-and-log pipeline exercisable against recorded streams.
type DryRunExecutor struct {
	logger logger.Logger
}

// NewDryRunExecutor creates a logging-only executor.
func NewDryRunExecutor(log logger.Logger) *DryRunExecutor {
	return &DryRunExecutor{logger: log}
}

// Report logs the report that would be filed.
func (e *DryRunExecutor) Report(ctx context.Context, commentID, reason string) error {
	e.logger.Info("dry-run: would report comment",
		logger.String("comment_id", commentID),
		logger.String("reason", reason))
	return nil
}

// Remove logs the removal that would happen.
func (e *DryRunExecutor) Remove(ctx context.Context, commentID string, markSpam bool) error {
	e.logger.Info("dry-run: would remove comment",
		logger.String("comment_id", commentID),
		logger.Bool("mark_spam", markSpam))
	return nil
}
