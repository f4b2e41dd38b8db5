// Package classify holds the classifier-facing domain types: the analysis
// result, the class taxonomy, and the label list that maps output indices to
// class names.
package classify

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// ErrModelUnavailable is returned when the classifier checkpoint cannot be
// located or loaded. It is fatal at startup and never retried.
var ErrModelUnavailable = errors.New("classifier model unavailable")

// Result is the reduced output of one classification: the most probable
// class and its probability.
type Result struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Top reduces a probability distribution to its most probable label.
// probs[i] is the probability of labels[i].
func Top(probs []float32, labels []string) (Result, error) {
	if len(probs) == 0 {
		return Result{}, errors.New("empty probability vector")
	}
	if len(probs) != len(labels) {
		return Result{}, fmt.Errorf("classifier returned %d probabilities for %d labels", len(probs), len(labels))
	}

	p := make([]float64, len(probs))
	for i, v := range probs {
		if math.IsNaN(float64(v)) {
			return Result{}, fmt.Errorf("probability for %q is NaN", labels[i])
		}
		p[i] = float64(v)
	}

	idx := floats.MaxIdx(p)
	return Result{Label: labels[idx], Confidence: clamp01(p[idx])}, nil
}

// SumsToOne reports whether a distribution sums to 1 within tol.
func SumsToOne(probs []float32, tol float64) bool {
	p := make([]float64, len(probs))
	for i, v := range probs {
		p[i] = float64(v)
	}
	return math.Abs(floats.Sum(p)-1) <= tol
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
