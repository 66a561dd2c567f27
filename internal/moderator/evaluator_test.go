package moderator

import (
	"testing"

	"github.com/conversationai/perspective-modbot/internal/domain"
	"github.com/conversationai/perspective-modbot/internal/rules"
)

func testRuleSet(t *testing.T) *rules.RuleSet {
	t.Helper()
	rs, err := rules.ParseRuleSet([]byte(`
ensembles:
  - name: combined
    feature_weights:
      TOXICITY: 4.0
    intercept_weight: -2.0
rules:
  - name: hi_tox
    perspective_score:
      TOXICITY: "> 0.8"
    action: report
    report_reason: toxic comment
  - name: hi_combined
    perspective_score:
      combined: "> 0.5"
    action: noop
`))
	if err != nil {
		t.Fatalf("ParseRuleSet: %v", err)
	}
	return rs
}

func TestEvaluate_FiredAndSentinel(t *testing.T) {
	e := NewEvaluator(testRuleSet(t))

	eval, err := e.Evaluate(rules.ScoreMap{"TOXICITY": 0.9}, nil)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if eval.Outcomes["hi_tox"] != "report" {
		t.Errorf("hi_tox outcome = %q", eval.Outcomes["hi_tox"])
	}
	// sigmoid(-2 + 4*0.9) = sigmoid(1.6) > 0.5, so the ensemble rule fires.
	if eval.Outcomes["hi_combined"] != "noop" {
		t.Errorf("hi_combined outcome = %q", eval.Outcomes["hi_combined"])
	}
	if len(eval.Fired) != 2 {
		t.Errorf("fired = %d rules", len(eval.Fired))
	}
	if _, ok := eval.Scores["combined"]; !ok {
		t.Error("ensemble output missing from evaluation scores")
	}
}

func TestEvaluate_NotTriggered(t *testing.T) {
	e := NewEvaluator(testRuleSet(t))

	eval, err := e.Evaluate(rules.ScoreMap{"TOXICITY": 0.2}, nil)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if eval.Outcomes["hi_tox"] != domain.RuleNotTriggered {
		t.Errorf("hi_tox outcome = %q, want sentinel", eval.Outcomes["hi_tox"])
	}
	// sigmoid(-2 + 4*0.2) < 0.5.
	if eval.Outcomes["hi_combined"] != domain.RuleNotTriggered {
		t.Errorf("hi_combined outcome = %q, want sentinel", eval.Outcomes["hi_combined"])
	}
	if len(eval.Fired) != 0 {
		t.Errorf("fired = %d rules, want 0", len(eval.Fired))
	}
}

func TestEvaluate_MissingScoreAborts(t *testing.T) {
	e := NewEvaluator(testRuleSet(t))
	if _, err := e.Evaluate(rules.ScoreMap{"INSULT": 0.9}, nil); err == nil {
		t.Fatal("want error when a required score is absent")
	}
}
