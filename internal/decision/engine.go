package decision

import (
	"errors"
	"fmt"
	"math"

	"cropwatch/internal/classify"
)

// DefaultFieldAreaSqm is the field area assumed when none is given.
const DefaultFieldAreaSqm = 1000.0

// Dosages in RuleConfig are defined per this many square metres.
const ruleAreaSqm = 1000.0

var (
	ErrInvalidFieldArea  = errors.New("field area must be a positive number of square metres")
	ErrInvalidConfidence = errors.New("confidence must be between 0 and 1")
)

// Recommendation is the outcome of one decision.
type Recommendation struct {
	SprayRecommended bool    `json:"spray_recommended"`
	Reason           string  `json:"reason"`
	AmountMl         float64 `json:"amount_ml"`
}

// Engine applies a fixed RuleConfig. It holds no mutable state, so a single
// Engine may be shared between goroutines.
type Engine struct {
	cfg      RuleConfig
	taxonomy classify.Taxonomy
}

// NewEngine validates cfg and builds an engine from a private copy of it.
func NewEngine(cfg RuleConfig) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rule config: %w", err)
	}
	cfg = cfg.clone()
	return &Engine{
		cfg:      cfg,
		taxonomy: classify.NewTaxonomy(cfg.HealthyClass, cfg.PestClasses),
	}, nil
}

// Config returns a copy of the rules in effect.
func (e *Engine) Config() RuleConfig {
	return e.cfg.clone()
}

// Taxonomy returns the class partition the engine decides with.
func (e *Engine) Taxonomy() classify.Taxonomy {
	return e.taxonomy
}

// Decide maps a classification and a field area to a recommendation.
// The first matching rule wins: low confidence, then healthy, then spray.
func (e *Engine) Decide(res classify.Result, fieldAreaSqm float64) (Recommendation, error) {
	if math.IsNaN(res.Confidence) || res.Confidence < 0 || res.Confidence > 1 {
		return Recommendation{}, fmt.Errorf("%w: got %v", ErrInvalidConfidence, res.Confidence)
	}
	if math.IsNaN(fieldAreaSqm) || math.IsInf(fieldAreaSqm, 0) || fieldAreaSqm <= 0 {
		return Recommendation{}, fmt.Errorf("%w: got %v", ErrInvalidFieldArea, fieldAreaSqm)
	}

	if res.Confidence < e.cfg.MinConfidence {
		return Recommendation{
			Reason: fmt.Sprintf("Confidence (%s) is below threshold (%s).",
				percent(res.Confidence), percent(e.cfg.MinConfidence)),
		}, nil
	}

	class := e.taxonomy.Classify(res.Label)
	if class.Kind == classify.KindHealthy {
		return Recommendation{Reason: "Plant is healthy."}, nil
	}

	multiplier := e.cfg.DiseaseMultiplier
	if class.Kind == classify.KindPest {
		multiplier = e.cfg.PestMultiplier
	}

	calculated := e.cfg.BaseMlPer1000Sqm * multiplier
	scaled := (calculated / ruleAreaSqm) * fieldAreaSqm
	maxScaled := (e.cfg.MaxMlPer1000Sqm / ruleAreaSqm) * fieldAreaSqm

	return Recommendation{
		SprayRecommended: true,
		Reason:           fmt.Sprintf("%s Detected: %s (Confidence: %s)", class.Kind, class.Name, percent(res.Confidence)),
		AmountMl:         round2(math.Min(scaled, maxScaled)),
	}, nil
}

func percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
