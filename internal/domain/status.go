package domain

// CommentStatus holds the eventually-observed platform status of a comment.
// Field presence depends on the credential level of the reconciling identity:
// Approved is only populated with moderator visibility, and without it
// Removed is inferred heuristically. Nil pointers serialize as null/absent.
type CommentStatus struct {
	Approved    *bool
	Removed     *bool
	Deleted     *bool
	Score       *int
	Ups         *int
	Downs       *int
	ScoreHidden *bool
	Collapsed   *bool
}

// BoolPtr returns a pointer to b. Convenience for building statuses.
func BoolPtr(b bool) *bool { return &b }

// IntPtr returns a pointer to i.
func IntPtr(i int) *int { return &i }
