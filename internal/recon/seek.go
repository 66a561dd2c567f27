package recon

import (
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var seekJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// SkipSeen advances src past exactly len(seen) lines, each of which must
// carry a comment id in the resume set. Any deviation means the output log
// was not produced from this input log, and resuming would double-process
// or silently drop records; that is a ResumeInconsistencyError.
func SkipSeen(src *Source, seen map[string]bool) error {
	remaining := len(seen)
	for remaining > 0 {
		line, err := src.Next()
		if errors.Is(err, ErrNoData) {
			return &ResumeInconsistencyError{
				Reason: fmt.Sprintf("input ended with %d already-processed ids unmatched", remaining),
			}
		}
		if err != nil {
			return fmt.Errorf("skipping seen records: %w", err)
		}

		id, err := lineCommentID(line)
		if err != nil {
			return fmt.Errorf("skipping seen records: %w", err)
		}
		if !seen[id] {
			return &ResumeInconsistencyError{
				Reason: fmt.Sprintf("comment %s is not in the already-processed set (%d left to skip)", id, remaining),
			}
		}
		remaining--
	}
	return nil
}

func lineCommentID(line []byte) (string, error) {
	var probe struct {
		CommentID string `json:"comment_id"`
	}
	if err := seekJSON.Unmarshal(line, &probe); err != nil {
		return "", fmt.Errorf("parse record line: %w", err)
	}
	return probe.CommentID, nil
}
