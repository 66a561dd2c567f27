package recon

import "fmt"

// ResumeInconsistencyError indicates the output log and input log disagree:
// either the input ended before every resume id was matched, or a line that
// is not in the resume set appeared before the expected skip count was
// reached. Both mean the logs must not be reconciled further.
type ResumeInconsistencyError struct {
	Reason string
}

func (e *ResumeInconsistencyError) Error() string {
	return fmt.Sprintf("resume inconsistency: %s", e.Reason)
}
