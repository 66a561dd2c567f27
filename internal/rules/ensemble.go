package rules

import (
	"fmt"
	"math"
	"sort"
)

// Ensemble computes a derived score as a fixed logistic combination of other
// model scores. Its name acts as a virtual model name: the evaluation
// pipeline injects the ensemble's output into the ScoreMap before any rule
// referencing it runs. Ensembles cannot reference other ensembles.
type Ensemble struct {
	Name           string
	FeatureWeights map[string]float64
	Intercept      float64
}

// NewEnsemble validates and constructs an ensemble.
func NewEnsemble(name string, featureWeights map[string]float64, intercept float64) (*Ensemble, error) {
	if name == "" {
		return nil, fmt.Errorf("ensemble requires a name")
	}
	if len(featureWeights) == 0 {
		return nil, fmt.Errorf("ensemble %q has no feature weights", name)
	}
	return &Ensemble{
		Name:           name,
		FeatureWeights: featureWeights,
		Intercept:      intercept,
	}, nil
}

// Predict returns sigmoid(intercept + sum(weight_i * score_i)) over the
// ensemble's feature weights. Summation runs in sorted model order: float
// addition is not associative, so map iteration order would make identical
// inputs produce different bit patterns. Deterministic: identical inputs
// produce bit-identical output.
func (e *Ensemble) Predict(scores ScoreMap) (float64, error) {
	models := make([]string, 0, len(e.FeatureWeights))
	for model := range e.FeatureWeights {
		models = append(models, model)
	}
	sort.Strings(models)

	z := e.Intercept
	for _, model := range models {
		score, ok := scores[model]
		if !ok {
			return 0, &MissingScoreError{Model: model}
		}
		z += e.FeatureWeights[model] * score
	}
	return sigmoid(z), nil
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
