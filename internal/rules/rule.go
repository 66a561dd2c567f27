// Package rules implements the threshold rule and ensemble model that turn
// per-text classifier scores into moderation decisions.
package rules

import (
	"fmt"
	"sort"
	"strings"

	"github.com/conversationai/perspective-modbot/internal/domain"
)

// ScoreMap maps model name to a score in [0,1]. Ensemble outputs are
// injected under the ensemble's name, so rules see one flat namespace.
type ScoreMap map[string]float64

// Comparator is a strict threshold comparison. Only ">" and "<" exist;
// anything else is rejected at load time.
type Comparator string

const (
	Greater Comparator = ">"
	Less    Comparator = "<"
)

// Predicate is one model threshold condition.
type Predicate struct {
	Cmp       Comparator
	Threshold float64
}

// Rule is a named conjunction of model and feature predicates mapped to an
// action. Immutable after construction.
type Rule struct {
	Name              string
	ModelPredicates   map[string]Predicate
	FeaturePredicates map[string]bool
	Action            domain.ActionKind
	ReportReason      string
}

var supportedFeatures = map[string]bool{
	domain.FeatureTopLevelOnly: true,
}

// NewRule validates and constructs a rule. When name is empty it is derived
// from the sorted model predicate keys; the derived name must still be
// unique within its rule set (checked by the loader).
func NewRule(
	name string,
	modelPredicates map[string]Predicate,
	featurePredicates map[string]bool,
	action domain.ActionKind,
	reportReason string,
) (*Rule, error) {
	if len(modelPredicates) == 0 {
		return nil, ErrEmptyRule
	}
	for model, pred := range modelPredicates {
		if pred.Cmp != Greater && pred.Cmp != Less {
			return nil, fmt.Errorf("rule predicate for %q: comparator must be %q or %q, got %q",
				model, Greater, Less, pred.Cmp)
		}
	}
	for feature := range featurePredicates {
		if !supportedFeatures[feature] {
			return nil, fmt.Errorf("unsupported comment feature %q", feature)
		}
	}
	if !action.Valid() {
		return nil, fmt.Errorf("unknown action %q", action)
	}
	if name == "" {
		name = deriveName(modelPredicates)
	}

	return &Rule{
		Name:              name,
		ModelPredicates:   modelPredicates,
		FeaturePredicates: featurePredicates,
		Action:            action,
		ReportReason:      reportReason,
	}, nil
}

func deriveName(modelPredicates map[string]Predicate) string {
	models := make([]string, 0, len(modelPredicates))
	for model := range modelPredicates {
		models = append(models, model)
	}
	sort.Strings(models)
	return strings.Join(models, "_")
}

// Evaluate reports whether the rule fires for the given scores and comment
// features. It is the logical AND of all predicates. Every score lookup is
// checked in sorted model order before the conjunction is decided, so a
// missing score always surfaces as an error even when another predicate
// already failed. Side-effect-free and safe for concurrent use.
func (r *Rule) Evaluate(scores ScoreMap, features domain.CommentFeatures) (bool, error) {
	models := make([]string, 0, len(r.ModelPredicates))
	for model := range r.ModelPredicates {
		models = append(models, model)
	}
	sort.Strings(models)

	fires := true
	for _, model := range models {
		score, ok := scores[model]
		if !ok {
			return false, &MissingScoreError{Model: model}
		}
		if !r.ModelPredicates[model].holds(score) {
			fires = false
		}
	}
	for feature, want := range r.FeaturePredicates {
		got, ok := features[feature]
		if !ok {
			return false, fmt.Errorf("comment feature %q not computed", feature)
		}
		if got != want {
			fires = false
		}
	}
	return fires, nil
}

func (p Predicate) holds(score float64) bool {
	if p.Cmp == Greater {
		return score > p.Threshold
	}
	return score < p.Threshold
}

// String renders the rule's predicates one per line, for operator logs.
func (r *Rule) String() string {
	models := make([]string, 0, len(r.ModelPredicates))
	for model := range r.ModelPredicates {
		models = append(models, model)
	}
	sort.Strings(models)
	lines := make([]string, 0, len(models))
	for _, model := range models {
		pred := r.ModelPredicates[model]
		lines = append(lines, fmt.Sprintf("%s %s %g", model, pred.Cmp, pred.Threshold))
	}
	return strings.Join(lines, "\n")
}
