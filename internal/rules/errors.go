package rules

import (
	"errors"
	"fmt"
)

// ErrEmptyRule is returned when a rule is constructed without any model
// predicate. An empty predicate set never evaluates to vacuous true.
var ErrEmptyRule = errors.New("rule has no model predicates")

// ErrEmptyRuleSet is returned when a rules file contains no rules.
var ErrEmptyRuleSet = errors.New("rules file contains no rules")

// MissingScoreError indicates a rule or ensemble referenced a model whose
// score is absent from the score map. This is a config/pipeline mismatch,
// not a recoverable runtime condition: the containing operation should
// abort rather than silently degrade.
type MissingScoreError struct {
	Model string
}

func (e *MissingScoreError) Error() string {
	return fmt.Sprintf("no score for model %q", e.Model)
}
