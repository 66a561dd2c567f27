package domain

import (
	"fmt"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// Column prefixes in the record logs. Model scores and rule outcomes are
// flattened into the record object under prefixed keys.
const (
	ScoreColumnPrefix = "score:"
	RuleColumnPrefix  = "rule:"
)

// recordJSON sorts map keys so record lines are deterministic, which keeps
// logs diffable and tests stable.
var recordJSON = jsoniter.Config{SortMapKeys: true, EscapeHTML: false}.Froze()

// ScoredRecord is the persisted audit unit written once per scored comment.
// It is append-only: the scoring pipeline never mutates a record after the
// initial write.
type ScoredRecord struct {
	CommentID string
	LinkID    string
	ParentID  string
	Subreddit string
	Permalink string
	// Author is empty when the account was absent at scoring time.
	Author          string
	OrigCommentText string
	// ScoredText is set only when the text was transformed before scoring.
	ScoredText   string
	CreatedUTC   time.Time
	BotScoredUTC time.Time
	// Scores maps model name to score, serialized under "score:" columns.
	Scores map[string]float64
	// RuleOutcomes maps rule name to the action taken or RuleNotTriggered,
	// serialized under "rule:" columns.
	RuleOutcomes map[string]string
}

// MarshalJSON flattens the record into a single JSON object with prefixed
// score and rule columns.
func (r ScoredRecord) MarshalJSON() ([]byte, error) {
	return recordJSON.Marshal(r.toMap())
}

func (r ScoredRecord) toMap() map[string]any {
	m := map[string]any{
		"comment_id":        r.CommentID,
		"link_id":           r.LinkID,
		"parent_id":         r.ParentID,
		"subreddit":         r.Subreddit,
		"permalink":         r.Permalink,
		"orig_comment_text": r.OrigCommentText,
		"created_utc":       FormatTimestamp(r.CreatedUTC),
		"bot_scored_utc":    FormatTimestamp(r.BotScoredUTC),
	}
	if r.Author != "" {
		m["author"] = r.Author
	} else {
		m["author"] = nil
	}
	if r.ScoredText != "" {
		m["comment_text"] = r.ScoredText
	}
	for model, score := range r.Scores {
		m[ScoreColumnPrefix+model] = score
	}
	for rule, outcome := range r.RuleOutcomes {
		m[RuleColumnPrefix+rule] = outcome
	}
	return m
}

// UnmarshalJSON reverses MarshalJSON, collecting prefixed columns back into
// the Scores and RuleOutcomes maps. Unknown keys are ignored.
func (r *ScoredRecord) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := recordJSON.Unmarshal(data, &m); err != nil {
		return err
	}
	return r.fromMap(m)
}

func (r *ScoredRecord) fromMap(m map[string]any) error {
	r.CommentID = stringField(m, "comment_id")
	r.LinkID = stringField(m, "link_id")
	r.ParentID = stringField(m, "parent_id")
	r.Subreddit = stringField(m, "subreddit")
	r.Permalink = stringField(m, "permalink")
	r.Author = stringField(m, "author")
	r.OrigCommentText = stringField(m, "orig_comment_text")
	r.ScoredText = stringField(m, "comment_text")

	var err error
	if r.CreatedUTC, err = timeField(m, "created_utc"); err != nil {
		return err
	}
	if r.BotScoredUTC, err = timeField(m, "bot_scored_utc"); err != nil {
		return err
	}

	r.Scores = make(map[string]float64)
	r.RuleOutcomes = make(map[string]string)
	for k, v := range m {
		switch {
		case strings.HasPrefix(k, ScoreColumnPrefix):
			f, ok := v.(float64)
			if !ok {
				return fmt.Errorf("record column %q: expected number, got %T", k, v)
			}
			r.Scores[strings.TrimPrefix(k, ScoreColumnPrefix)] = f
		case strings.HasPrefix(k, RuleColumnPrefix):
			s, ok := v.(string)
			if !ok {
				return fmt.Errorf("record column %q: expected string, got %T", k, v)
			}
			r.RuleOutcomes[strings.TrimPrefix(k, RuleColumnPrefix)] = s
		}
	}
	return nil
}

// ReconciledRecord is a ScoredRecord augmented with the comment's observed
// platform status. It is written once to a separate output log; the original
// record is never rewritten.
type ReconciledRecord struct {
	ScoredRecord
	Status CommentStatus
	// ActionCheckedUTC is when the status lookup for this record completed.
	ActionCheckedUTC time.Time
	// Reconciled is false when the status source never returned this
	// record's id.
	Reconciled bool
}

// MarshalJSON flattens the reconciled record; status fields with nil values
// are omitted, so an unreconciled record carries no status columns at all.
func (r ReconciledRecord) MarshalJSON() ([]byte, error) {
	m := r.ScoredRecord.toMap()
	m["action_checked_utc"] = FormatTimestamp(r.ActionCheckedUTC)
	m["reconciled"] = r.Reconciled
	putBool(m, "approved", r.Status.Approved)
	putBool(m, "removed", r.Status.Removed)
	putBool(m, "deleted", r.Status.Deleted)
	putInt(m, "score", r.Status.Score)
	putInt(m, "ups", r.Status.Ups)
	putInt(m, "downs", r.Status.Downs)
	putBool(m, "score_hidden", r.Status.ScoreHidden)
	putBool(m, "collapsed", r.Status.Collapsed)
	return recordJSON.Marshal(m)
}

// UnmarshalJSON reverses MarshalJSON.
func (r *ReconciledRecord) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := recordJSON.Unmarshal(data, &m); err != nil {
		return err
	}
	if err := r.ScoredRecord.fromMap(m); err != nil {
		return err
	}
	var err error
	if r.ActionCheckedUTC, err = timeField(m, "action_checked_utc"); err != nil {
		return err
	}
	if v, ok := m["reconciled"].(bool); ok {
		r.Reconciled = v
	}
	r.Status.Approved = boolField(m, "approved")
	r.Status.Removed = boolField(m, "removed")
	r.Status.Deleted = boolField(m, "deleted")
	r.Status.Score = intField(m, "score")
	r.Status.Ups = intField(m, "ups")
	r.Status.Downs = intField(m, "downs")
	r.Status.ScoreHidden = boolField(m, "score_hidden")
	r.Status.Collapsed = boolField(m, "collapsed")
	return nil
}

func putBool(m map[string]any, key string, v *bool) {
	if v != nil {
		m[key] = *v
	}
}

func putInt(m map[string]any, key string, v *int) {
	if v != nil {
		m[key] = *v
	}
}

func stringField(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func boolField(m map[string]any, key string) *bool {
	if b, ok := m[key].(bool); ok {
		return &b
	}
	return nil
}

func intField(m map[string]any, key string) *int {
	if f, ok := m[key].(float64); ok {
		i := int(f)
		return &i
	}
	return nil
}

func timeField(m map[string]any, key string) (time.Time, error) {
	s, ok := m[key].(string)
	if !ok || s == "" {
		return time.Time{}, nil
	}
	t, err := ParseTimestamp(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("record field %q: %w", key, err)
	}
	return t, nil
}
