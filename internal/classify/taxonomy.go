package classify

import "sort"

// Kind partitions the class set. Every label belongs to exactly one kind.
type Kind int

const (
	KindHealthy Kind = iota
	KindPest
	KindDisease
)

func (k Kind) String() string {
	switch k {
	case KindHealthy:
		return "Healthy"
	case KindPest:
		return "Pest"
	case KindDisease:
		return "Disease"
	default:
		return "Unknown"
	}
}

// MarshalText encodes the kind by name, also when used as a map key.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Class is a label tagged with its kind.
type Class struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
}

// Taxonomy assigns a Kind to every label: the healthy label is Healthy,
// members of the pest set are Pest, and every other label is a Disease.
type Taxonomy struct {
	healthy string
	pests   map[string]struct{}
}

// NewTaxonomy builds a taxonomy from the healthy label and the pest set.
// Names are matched exactly.
func NewTaxonomy(healthy string, pests []string) Taxonomy {
	t := Taxonomy{healthy: healthy, pests: make(map[string]struct{}, len(pests))}
	for _, p := range pests {
		t.pests[p] = struct{}{}
	}
	return t
}

// Classify tags a label with its kind.
func (t Taxonomy) Classify(label string) Class {
	switch {
	case label == t.healthy:
		return Class{Name: label, Kind: KindHealthy}
	case t.isPest(label):
		return Class{Name: label, Kind: KindPest}
	default:
		return Class{Name: label, Kind: KindDisease}
	}
}

func (t Taxonomy) isPest(label string) bool {
	_, ok := t.pests[label]
	return ok
}

// Partition groups labels by kind.
func (t Taxonomy) Partition(labels []string) map[Kind][]string {
	out := make(map[Kind][]string, 3)
	for _, l := range labels {
		c := t.Classify(l)
		out[c.Kind] = append(out[c.Kind], l)
	}
	return out
}

// Missing returns the configured healthy and pest names that do not appear
// in labels. A non-empty result usually means a spelling mismatch between the
// rule configuration and the model's class list.
func (t Taxonomy) Missing(labels []string) []string {
	known := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		known[l] = struct{}{}
	}

	var missing []string
	if _, ok := known[t.healthy]; !ok {
		missing = append(missing, t.healthy)
	}
	for p := range t.pests {
		if _, ok := known[p]; !ok {
			missing = append(missing, p)
		}
	}
	sort.Strings(missing)
	return missing
}
