package rules

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/conversationai/perspective-modbot/internal/domain"
)

// AvailableAPIModels is the set of model names the scoring API publishes.
// Rules and ensembles may only reference these (or configured ensembles).
var AvailableAPIModels = map[string]bool{
	"TOXICITY":            true,
	"SEVERE_TOXICITY":     true,
	"IDENTITY_ATTACK":     true,
	"INSULT":              true,
	"PROFANITY":           true,
	"THREAT":              true,
	"SEXUALLY_EXPLICIT":   true,
	"ATTACK_ON_AUTHOR":    true,
	"ATTACK_ON_COMMENTER": true,
	"INCOHERENT":          true,
	"INFLAMMATORY":        true,
	"LIKELY_TO_REJECT":    true,
	"OBSCENE":             true,
	"SPAM":                true,
	"UNSUBSTANTIAL":       true,
}

// RuleSet is a validated set of rules and ensembles plus the external model
// names the scorer must be asked for. Built once at startup, immutable.
type RuleSet struct {
	Rules     []*Rule
	Ensembles []*Ensemble
	// APIModels is sorted: every model referenced by a rule or consumed by
	// an ensemble, minus names satisfied by ensembles themselves.
	APIModels []string
}

type ruleConfig struct {
	Name             string            `yaml:"name"`
	PerspectiveScore map[string]string `yaml:"perspective_score"`
	CommentFeatures  map[string]bool   `yaml:"comment_features"`
	Action           string            `yaml:"action"`
	ReportReason     string            `yaml:"report_reason"`
}

type ensembleConfig struct {
	Name            string             `yaml:"name"`
	FeatureWeights  map[string]float64 `yaml:"feature_weights"`
	InterceptWeight float64            `yaml:"intercept_weight"`
}

type rulesFile struct {
	Ensembles []ensembleConfig `yaml:"ensembles"`
	Rules     []ruleConfig     `yaml:"rules"`
}

// LoadRuleSet reads and validates a rules YAML file.
func LoadRuleSet(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file %s: %w", path, err)
	}
	rs, err := ParseRuleSet(data)
	if err != nil {
		return nil, fmt.Errorf("rules file %s: %w", path, err)
	}
	return rs, nil
}

// ParseRuleSet parses and validates rules YAML.
func ParseRuleSet(data []byte) (*RuleSet, error) {
	var file rulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse rules yaml: %w", err)
	}

	ensembles, ensembleInputs, err := buildEnsembles(file.Ensembles)
	if err != nil {
		return nil, err
	}

	loadedRules, ruleInputs, err := buildRules(file.Rules)
	if err != nil {
		return nil, err
	}

	ensembleNames := make(map[string]bool, len(ensembles))
	for _, e := range ensembles {
		ensembleNames[e.Name] = true
	}

	// External model names: everything ensembles consume, plus rule inputs
	// not satisfied by an ensemble.
	apiModels := make(map[string]bool, len(ensembleInputs)+len(ruleInputs))
	for model := range ensembleInputs {
		apiModels[model] = true
	}
	for model := range ruleInputs {
		if !ensembleNames[model] {
			apiModels[model] = true
		}
	}

	var unknown []string
	for model := range apiModels {
		if !AvailableAPIModels[model] {
			unknown = append(unknown, model)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("requested API models that are not available: %v", unknown)
	}

	sorted := make([]string, 0, len(apiModels))
	for model := range apiModels {
		sorted = append(sorted, model)
	}
	sort.Strings(sorted)

	return &RuleSet{
		Rules:     loadedRules,
		Ensembles: ensembles,
		APIModels: sorted,
	}, nil
}

func buildEnsembles(configs []ensembleConfig) ([]*Ensemble, map[string]bool, error) {
	ensembles := make([]*Ensemble, 0, len(configs))
	inputs := make(map[string]bool)
	seen := make(map[string]bool, len(configs))

	for _, ec := range configs {
		e, err := NewEnsemble(ec.Name, ec.FeatureWeights, ec.InterceptWeight)
		if err != nil {
			return nil, nil, err
		}
		if seen[e.Name] {
			return nil, nil, fmt.Errorf("duplicate ensemble name %q", e.Name)
		}
		seen[e.Name] = true
		// Ensemble names and API model names are merged into one ScoreMap
		// at evaluation time, so the namespaces must stay disjoint.
		if AvailableAPIModels[e.Name] {
			return nil, nil, fmt.Errorf("ensemble %q has the same name as an API model", e.Name)
		}
		for model := range e.FeatureWeights {
			inputs[model] = true
		}
		ensembles = append(ensembles, e)
	}
	return ensembles, inputs, nil
}

func buildRules(configs []ruleConfig) ([]*Rule, map[string]bool, error) {
	if len(configs) == 0 {
		return nil, nil, ErrEmptyRuleSet
	}

	loaded := make([]*Rule, 0, len(configs))
	inputs := make(map[string]bool)
	seen := make(map[string]bool, len(configs))

	for _, rc := range configs {
		preds, err := parsePredicates(rc.PerspectiveScore)
		if err != nil {
			return nil, nil, err
		}
		r, err := NewRule(rc.Name, preds, rc.CommentFeatures, domain.ActionKind(rc.Action), rc.ReportReason)
		if err != nil {
			return nil, nil, err
		}
		if seen[r.Name] {
			return nil, nil, fmt.Errorf("duplicate rule name %q", r.Name)
		}
		seen[r.Name] = true
		for model := range r.ModelPredicates {
			inputs[model] = true
		}
		loaded = append(loaded, r)
	}
	return loaded, inputs, nil
}

// parsePredicates parses threshold conditions of the form "> 0.9" / "< 0.2".
func parsePredicates(conditions map[string]string) (map[string]Predicate, error) {
	preds := make(map[string]Predicate, len(conditions))
	for model, cond := range conditions {
		parts := strings.Fields(cond)
		if len(parts) != 2 {
			return nil, fmt.Errorf("predicate for %q: want \"<comparator> <threshold>\", got %q", model, cond)
		}
		cmp := Comparator(parts[0])
		if cmp != Greater && cmp != Less {
			return nil, fmt.Errorf("predicate for %q: comparator must be %q or %q, got %q",
				model, Greater, Less, parts[0])
		}
		threshold, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, fmt.Errorf("predicate for %q: bad threshold %q: %w", model, parts[1], err)
		}
		preds[model] = Predicate{Cmp: cmp, Threshold: threshold}
	}
	return preds, nil
}
