// Package moderator runs the comment moderation loop: evaluate scored
// comments against the configured rules, apply actions, and persist the
// audit record.
package moderator

import (
	"fmt"

	"github.com/conversationai/perspective-modbot/internal/domain"
	"github.com/conversationai/perspective-modbot/internal/rules"
)

// Evaluation is the outcome of evaluating one comment's scores.
type Evaluation struct {
	// Scores includes the external model scores plus every ensemble's
	// output under its virtual model name.
	Scores rules.ScoreMap
	// Outcomes has one entry per configured rule: the action name when the
	// rule fired, or the not-triggered sentinel.
	Outcomes map[string]string
	// Fired lists the rules that fired, in rule-set order.
	Fired []*rules.Rule
}

// Evaluator evaluates comments against a rule set. Ensembles are evaluated
// first, always: rules treat an ensemble's output as just another score, so
// the ensemble pass must complete before any rule runs. There is no
// ensemble-of-ensemble support, so one pass suffices.
type Evaluator struct {
	ruleSet *rules.RuleSet
}

// NewEvaluator creates an evaluator for a validated rule set.
func NewEvaluator(rs *rules.RuleSet) *Evaluator {
	return &Evaluator{ruleSet: rs}
}

// Evaluate computes ensemble scores, then every rule. A missing score means
// the rule config and the scorer request diverged; that aborts the whole
// evaluation rather than degrading silently.
func (e *Evaluator) Evaluate(scores rules.ScoreMap, features domain.CommentFeatures) (*Evaluation, error) {
	merged := make(rules.ScoreMap, len(scores)+len(e.ruleSet.Ensembles))
	for model, score := range scores {
		merged[model] = score
	}

	for _, ens := range e.ruleSet.Ensembles {
		score, err := ens.Predict(scores)
		if err != nil {
			return nil, fmt.Errorf("ensemble %q: %w", ens.Name, err)
		}
		merged[ens.Name] = score
	}

	eval := &Evaluation{
		Scores:   merged,
		Outcomes: make(map[string]string, len(e.ruleSet.Rules)),
	}
	for _, rule := range e.ruleSet.Rules {
		fired, err := rule.Evaluate(merged, features)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", rule.Name, err)
		}
		if fired {
			eval.Outcomes[rule.Name] = string(rule.Action)
			eval.Fired = append(eval.Fired, rule)
		} else {
			eval.Outcomes[rule.Name] = domain.RuleNotTriggered
		}
	}
	return eval, nil
}
