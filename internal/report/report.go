// Package report defines the per-cycle report emitted by the capture loop
// and the sinks that deliver it.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"cropwatch/internal/classify"
	"cropwatch/internal/decision"
)

// Kind identifies what a report describes.
type Kind int

const (
	KindAnalysis Kind = iota
	KindModelUnavailable
	KindDeviceError
	KindAnalysisError
	KindShutdown
)

func (k Kind) String() string {
	switch k {
	case KindAnalysis:
		return "analysis"
	case KindModelUnavailable:
		return "model_unavailable"
	case KindDeviceError:
		return "device_error"
	case KindAnalysisError:
		return "analysis_error"
	case KindShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Terminal reports whether the loop stops after emitting this kind.
func (k Kind) Terminal() bool {
	return k != KindAnalysis
}

// Report is one entry on the report sink.
type Report struct {
	ID             string                   `json:"id"`
	Kind           Kind                     `json:"kind"`
	Timestamp      time.Time                `json:"timestamp"`
	Label          string                   `json:"label,omitempty"`
	Confidence     float64                  `json:"confidence"`
	Recommendation *decision.Recommendation `json:"recommendation,omitempty"`
	FieldAreaSqm   float64                  `json:"field_area_sqm,omitempty"`
	Message        string                   `json:"message,omitempty"`
}

// NewAnalysis builds the report for a completed cycle.
func NewAnalysis(at time.Time, res classify.Result, rec decision.Recommendation, fieldAreaSqm float64) Report {
	return Report{
		ID:             uuid.NewString(),
		Kind:           KindAnalysis,
		Timestamp:      at,
		Label:          res.Label,
		Confidence:     res.Confidence,
		Recommendation: &rec,
		FieldAreaSqm:   fieldAreaSqm,
	}
}

// NewEvent builds a lifecycle report (fatal errors and shutdown).
func NewEvent(kind Kind, at time.Time, message string) Report {
	return Report{
		ID:        uuid.NewString(),
		Kind:      kind,
		Timestamp: at,
		Message:   message,
	}
}

const timeLayout = "2006-01-02 15:04:05"

// Format renders the human-readable report block.
func Format(r Report) string {
	var b strings.Builder
	switch r.Kind {
	case KindAnalysis:
		b.WriteString("--- WHEAT ANALYSIS REPORT ---\n")
		fmt.Fprintf(&b, "Time: %s\n", r.Timestamp.Format(timeLayout))
		fmt.Fprintf(&b, "Identified Issue: %s\n", r.Label)
		fmt.Fprintf(&b, "Model Confidence: %.2f%%\n", r.Confidence*100)
		b.WriteString(strings.Repeat("-", 30) + "\n")
		if rec := r.Recommendation; rec != nil {
			fmt.Fprintf(&b, "Spray Recommended: %s\n", yesNo(rec.SprayRecommended))
			if rec.SprayRecommended {
				fmt.Fprintf(&b, "Calculated Dosage (%g sqm): %.2f ml\n", r.FieldAreaSqm, rec.AmountMl)
			}
			fmt.Fprintf(&b, "Reason: %s\n", rec.Reason)
		}
		b.WriteString("--- END OF REPORT ---")
	case KindModelUnavailable:
		fmt.Fprintf(&b, "FATAL ERROR: %s", r.Message)
	case KindDeviceError:
		fmt.Fprintf(&b, "Error: %s. Exiting.", r.Message)
	case KindAnalysisError:
		fmt.Fprintf(&b, "Error: analysis failed: %s. Exiting.", r.Message)
	case KindShutdown:
		fmt.Fprintf(&b, "Shutting down: %s", r.Message)
	default:
		fmt.Fprintf(&b, "%s: %s", r.Kind, r.Message)
	}
	return b.String()
}

// Line renders a report as one tab-separated line:
// time, kind, label, confidence, spray (1/0), amount ml, reason or message.
func Line(r Report) string {
	spray, amount, text := "0", "0.00", r.Message
	if rec := r.Recommendation; rec != nil {
		if rec.SprayRecommended {
			spray = "1"
		}
		amount = fmt.Sprintf("%.2f", rec.AmountMl)
		text = rec.Reason
	}
	fields := []string{
		r.Timestamp.UTC().Format(time.RFC3339),
		r.Kind.String(),
		r.Label,
		fmt.Sprintf("%.4f", r.Confidence),
		spray,
		amount,
		strings.NewReplacer("\t", " ", "\n", " ").Replace(text),
	}
	return strings.Join(fields, "\t")
}

func yesNo(b bool) string {
	if b {
		return "YES"
	}
	return "NO"
}
