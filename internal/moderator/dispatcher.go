package moderator

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/conversationai/perspective-modbot/internal/domain"
	"github.com/conversationai/perspective-modbot/internal/logger"
)

// reportReasonLimit is the platform's hard cap on report reason text.
const reportReasonLimit = 100

// ActionExecutor performs the external moderation side effects. The
// platform client implementing it lives outside this package.
type ActionExecutor interface {
	// Report flags the comment for human moderator review.
	Report(ctx context.Context, commentID, reason string) error
	// Remove takes the comment down; markSpam also trains the platform's
	// spam filter. Requires moderator permissions.
	Remove(ctx context.Context, commentID string, markSpam bool) error
}

// Dispatcher maps a fired rule's action to an executor call.
type Dispatcher struct {
	exec   ActionExecutor
	logger logger.Logger
}

// NewDispatcher creates a dispatcher around the given executor.
func NewDispatcher(exec ActionExecutor, log logger.Logger) *Dispatcher {
	return &Dispatcher{exec: exec, logger: log}
}

// Apply performs the requested action on the comment. Reasons from multiple
// fired rules are joined and truncated to the platform's budget. Transient
// executor failures are returned for the caller to log; they are not fatal
// to the stream.
func (d *Dispatcher) Apply(ctx context.Context, action domain.ActionKind, commentID string, reasons []string) error {
	switch action {
	case domain.ActionReport:
		return d.exec.Report(ctx, commentID, truncateReason(strings.Join(reasons, "; ")))
	case domain.ActionNoop:
		return nil
	case domain.ActionRemove:
		return d.exec.Remove(ctx, commentID, false)
	case domain.ActionSpam:
		return d.exec.Remove(ctx, commentID, true)
	default:
		// Unknown actions are rejected at config load; reaching this point
		// means a logic bug, not bad input.
		return fmt.Errorf("action %q reached dispatch without load-time validation", action)
	}
}

// truncateReason cuts the reason to the platform budget on a rune boundary
// so a multi-byte character is never split into invalid UTF-8.
func truncateReason(reason string) string {
	if len(reason) <= reportReasonLimit {
		return reason
	}
	cut := reportReasonLimit
	for cut > 0 && !utf8.RuneStart(reason[cut]) {
		cut--
	}
	return reason[:cut]
}
