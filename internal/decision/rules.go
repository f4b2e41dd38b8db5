// Package decision turns a classification into a spray recommendation.
package decision

import (
	"errors"
	"fmt"
	"math"
)

// RuleConfig holds the dosage rules. The base and maximum dosages are per
// 1000 square metres of field.
type RuleConfig struct {
	MinConfidence     float64  `json:"min_confidence"`
	BaseMlPer1000Sqm  float64  `json:"base_ml_per_1000sqm"`
	PestMultiplier    float64  `json:"pest_multiplier"`
	DiseaseMultiplier float64  `json:"disease_multiplier"`
	MaxMlPer1000Sqm   float64  `json:"max_ml_per_1000sqm"`
	HealthyClass      string   `json:"healthy_class"`
	PestClasses       []string `json:"pest_classes"`
}

// DefaultRuleConfig returns the field-tested defaults.
func DefaultRuleConfig() RuleConfig {
	return RuleConfig{
		MinConfidence:     0.80,
		BaseMlPer1000Sqm:  400,
		PestMultiplier:    2.0,
		DiseaseMultiplier: 1.5,
		MaxMlPer1000Sqm:   2500,
		HealthyClass:      "Healthy",
		PestClasses:       []string{"Aphid", "Mite", "Stem fly"},
	}
}

// Validate checks that the rule values are usable.
func (c RuleConfig) Validate() error {
	if math.IsNaN(c.MinConfidence) || c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("min_confidence must be between 0 and 1, got %v", c.MinConfidence)
	}
	for name, v := range map[string]float64{
		"base_ml_per_1000sqm": c.BaseMlPer1000Sqm,
		"pest_multiplier":     c.PestMultiplier,
		"disease_multiplier":  c.DiseaseMultiplier,
		"max_ml_per_1000sqm":  c.MaxMlPer1000Sqm,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%s must be a non-negative number, got %v", name, v)
		}
	}
	if c.HealthyClass == "" {
		return errors.New("healthy_class must not be empty")
	}
	for _, p := range c.PestClasses {
		if p == c.HealthyClass {
			return fmt.Errorf("class %q cannot be both healthy and a pest", p)
		}
	}
	return nil
}

func (c RuleConfig) clone() RuleConfig {
	c.PestClasses = append([]string(nil), c.PestClasses...)
	return c
}
