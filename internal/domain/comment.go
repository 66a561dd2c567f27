// Package domain defines the record types flowing through the moderation
// pipeline. Each stage has its own type: Comment (raw), ScoredRecord
// (scored + rule outcomes), ReconciledRecord (scored + observed status).
package domain

import "time"

// Timestamp layout used in record logs and generated filenames.
// Compact and filename-friendly, always UTC.
const TimestampLayout = "20060102_150405"

// FormatTimestamp renders t in the compact UTC log format.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a compact UTC log timestamp.
func ParseTimestamp(s string) (time.Time, error) {
	return time.ParseInLocation(TimestampLayout, s, time.UTC)
}

// Comment is one item from the comment stream.
type Comment struct {
	ID        string
	ParentID  string
	LinkID    string
	Subreddit string
	Permalink string
	Body      string
	// Author is empty when the account is absent (deleted/suspended).
	Author     string
	CreatedUTC time.Time
}

// IsTopLevel reports whether the comment replies directly to its submission
// rather than to another comment.
func (c Comment) IsTopLevel() bool {
	return c.ParentID == c.LinkID
}

// Feature names usable in rule predicates.
const (
	FeatureTopLevelOnly = "toplevel_only"
)

// CommentFeatures holds the boolean comment attributes rules may test,
// independent of classifier scores.
type CommentFeatures map[string]bool

// FeaturesOf derives the rule-visible features of a comment.
func FeaturesOf(c Comment) CommentFeatures {
	return CommentFeatures{
		FeatureTopLevelOnly: c.IsTopLevel(),
	}
}
