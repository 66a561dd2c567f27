package recon

import (
	"context"

	"github.com/conversationai/perspective-modbot/internal/domain"
)

// MaxMultiGet is the platform's cap on ids per status lookup. Batch sizes
// above it would silently truncate responses, so the pipeline clamps to it.
const MaxMultiGet = 100

// Body sentinels the platform substitutes for unavailable comments. Author
// absence distinguishes them from a user literally typing the sentinel.
const (
	deletedSentinel = "[deleted]"
	removedSentinel = "[removed]"
)

// ItemStatus is the raw platform state of one comment at lookup time.
type ItemStatus struct {
	ID string
	// AuthorPresent is false when the account is gone or the comment was
	// deleted by its author.
	AuthorPresent bool
	Body          string
	// Approved and Removed are only trustworthy when the lookup ran with
	// moderator credentials.
	Approved    bool
	Removed     bool
	Score       int
	Ups         int
	Downs       int
	ScoreHidden bool
	Collapsed   bool
}

// StatusSource fetches current platform state for a batch of comment ids.
// Implementations may return fewer items than requested (ids that no longer
// resolve) and are not required to preserve order.
type StatusSource interface {
	MultiGet(ctx context.Context, ids []string) ([]ItemStatus, error)
}

// computeStatus derives the persisted status fields from raw item state.
// With moderator credentials the platform's approved/removed flags are
// authoritative. Without them removal is inferred from the removed-body
// sentinel, and approval cannot be observed at all, so it is omitted
// rather than recorded as false.
func computeStatus(item ItemStatus, hasModCreds bool) domain.CommentStatus {
	st := domain.CommentStatus{
		Deleted:     domain.BoolPtr(!item.AuthorPresent && item.Body == deletedSentinel),
		Score:       domain.IntPtr(item.Score),
		Ups:         domain.IntPtr(item.Ups),
		Downs:       domain.IntPtr(item.Downs),
		ScoreHidden: domain.BoolPtr(item.ScoreHidden),
		Collapsed:   domain.BoolPtr(item.Collapsed),
	}
	if hasModCreds {
		st.Approved = domain.BoolPtr(item.Approved)
		st.Removed = domain.BoolPtr(item.Removed)
	} else {
		st.Removed = domain.BoolPtr(!item.AuthorPresent && item.Body == removedSentinel)
	}
	return st
}
