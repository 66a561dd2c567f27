package rules

import (
	"errors"
	"testing"

	"github.com/conversationai/perspective-modbot/internal/domain"
)

func mustRule(t *testing.T, name string, preds map[string]Predicate, features map[string]bool) *Rule {
	t.Helper()
	r, err := NewRule(name, preds, features, domain.ActionReport, "")
	if err != nil {
		t.Fatalf("NewRule: %v", err)
	}
	return r
}

func TestRuleEvaluate_SinglePredicate(t *testing.T) {
	r := mustRule(t, "hi_tox", map[string]Predicate{
		"TOXICITY": {Cmp: Greater, Threshold: 0.9},
	}, nil)

	cases := []struct {
		score float64
		want  bool
	}{
		{0.91, true},
		{0.9, false}, // strict comparison, threshold itself does not fire
		{0.89, false},
	}
	for _, tc := range cases {
		got, err := r.Evaluate(ScoreMap{"TOXICITY": tc.score}, nil)
		if err != nil {
			t.Fatalf("Evaluate(%v): %v", tc.score, err)
		}
		if got != tc.want {
			t.Errorf("Evaluate(%v) = %v, want %v", tc.score, got, tc.want)
		}
	}
}

func TestRuleEvaluate_LessThan(t *testing.T) {
	r := mustRule(t, "low_quality", map[string]Predicate{
		"UNSUBSTANTIAL": {Cmp: Less, Threshold: 0.3},
	}, nil)

	if fired, _ := r.Evaluate(ScoreMap{"UNSUBSTANTIAL": 0.2}, nil); !fired {
		t.Error("score below threshold should fire")
	}
	if fired, _ := r.Evaluate(ScoreMap{"UNSUBSTANTIAL": 0.3}, nil); fired {
		t.Error("score at threshold should not fire")
	}
}

func TestRuleEvaluate_Conjunction(t *testing.T) {
	r := mustRule(t, "tox_and_insult", map[string]Predicate{
		"TOXICITY": {Cmp: Greater, Threshold: 0.8},
		"INSULT":   {Cmp: Greater, Threshold: 0.5},
	}, nil)

	fired, err := r.Evaluate(ScoreMap{"TOXICITY": 0.9, "INSULT": 0.6}, nil)
	if err != nil || !fired {
		t.Errorf("both predicates hold: fired=%v err=%v", fired, err)
	}
	fired, err = r.Evaluate(ScoreMap{"TOXICITY": 0.9, "INSULT": 0.4}, nil)
	if err != nil || fired {
		t.Errorf("one predicate fails: fired=%v err=%v", fired, err)
	}
}

func TestRuleEvaluate_MissingScore(t *testing.T) {
	r := mustRule(t, "hi_tox", map[string]Predicate{
		"TOXICITY": {Cmp: Greater, Threshold: 0.9},
	}, nil)

	_, err := r.Evaluate(ScoreMap{"INSULT": 0.99}, nil)
	var missing *MissingScoreError
	if !errors.As(err, &missing) {
		t.Fatalf("want MissingScoreError, got %v", err)
	}
	if missing.Model != "TOXICITY" {
		t.Errorf("missing model = %q, want TOXICITY", missing.Model)
	}
}

func TestRuleEvaluate_MissingScoreBeatsFailingPredicate(t *testing.T) {
	// A missing score must abort even when another predicate already failed.
	// Short-circuiting in map order would sometimes return false, nil here.
	r := mustRule(t, "tox_and_insult", map[string]Predicate{
		"TOXICITY": {Cmp: Greater, Threshold: 0.8},
		"INSULT":   {Cmp: Greater, Threshold: 0.5},
	}, nil)

	for i := 0; i < 2000; i++ {
		_, err := r.Evaluate(ScoreMap{"INSULT": 0.1}, nil)
		var missing *MissingScoreError
		if !errors.As(err, &missing) {
			t.Fatalf("call %d: want MissingScoreError, got %v", i, err)
		}
		if missing.Model != "TOXICITY" {
			t.Fatalf("call %d: missing model = %q, want TOXICITY", i, missing.Model)
		}
	}
}

func TestRuleEvaluate_FeaturePredicate(t *testing.T) {
	r := mustRule(t, "toplevel_tox", map[string]Predicate{
		"TOXICITY": {Cmp: Greater, Threshold: 0.5},
	}, map[string]bool{domain.FeatureTopLevelOnly: true})

	scores := ScoreMap{"TOXICITY": 0.9}
	if fired, _ := r.Evaluate(scores, domain.CommentFeatures{domain.FeatureTopLevelOnly: true}); !fired {
		t.Error("top-level comment should fire")
	}
	if fired, _ := r.Evaluate(scores, domain.CommentFeatures{domain.FeatureTopLevelOnly: false}); fired {
		t.Error("nested comment should not fire")
	}
}

func TestNewRule_EmptyPredicates(t *testing.T) {
	_, err := NewRule("empty", nil, nil, domain.ActionReport, "")
	if !errors.Is(err, ErrEmptyRule) {
		t.Fatalf("want ErrEmptyRule, got %v", err)
	}
}

func TestNewRule_DerivedName(t *testing.T) {
	r := mustRule(t, "", map[string]Predicate{
		"TOXICITY":        {Cmp: Greater, Threshold: 0.9},
		"SEVERE_TOXICITY": {Cmp: Greater, Threshold: 0.5},
		"INSULT":          {Cmp: Greater, Threshold: 0.7},
	}, nil)
	if r.Name != "INSULT_SEVERE_TOXICITY_TOXICITY" {
		t.Errorf("derived name = %q", r.Name)
	}
}

func TestNewRule_RejectsUnknownAction(t *testing.T) {
	_, err := NewRule("bad", map[string]Predicate{
		"TOXICITY": {Cmp: Greater, Threshold: 0.9},
	}, nil, domain.ActionKind("banhammer"), "")
	if err == nil {
		t.Fatal("want error for unknown action")
	}
}

func TestNewRule_RejectsUnknownFeature(t *testing.T) {
	_, err := NewRule("bad", map[string]Predicate{
		"TOXICITY": {Cmp: Greater, Threshold: 0.9},
	}, map[string]bool{"gilded_only": true}, domain.ActionReport, "")
	if err == nil {
		t.Fatal("want error for unsupported feature")
	}
}
