// Package dataset balances a class-per-directory training set by
// generating augmented samples for under-represented classes.
package dataset

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	img "cropwatch/internal/image"
)

// DefaultTarget is the number of samples each class is brought up to.
const DefaultTarget = 600

// ErrInvalidTarget is returned for a non-positive target.
var ErrInvalidTarget = errors.New("target must be positive")

// Augmenter writes a transformed copy of src to dst.
type Augmenter interface {
	Augment(src, dst string, rng *rand.Rand) error
}

// Options controls a balancing run.
type Options struct {
	Target int
	Seed   int64 // 0 picks a time-based seed
}

// ClassStats describes one class directory.
type ClassStats struct {
	Name      string `json:"name"`
	Found     int    `json:"found"`
	Generated int    `json:"generated"`
}

// Stats summarizes a run.
type Stats struct {
	Classes   []ClassStats `json:"classes"`
	Augmented int          `json:"augmented"` // classes that received new samples
	Empty     int          `json:"empty"`     // classes with no samples, left alone
	Satisfied int          `json:"satisfied"` // classes already at or above target
	Generated int          `json:"generated"` // total files written
}

// Balancer tops up classes to the target count.
type Balancer struct {
	aug  Augmenter
	opts Options
	rng  *rand.Rand
}

// NewBalancer creates a balancer.
func NewBalancer(aug Augmenter, opts Options) (*Balancer, error) {
	if opts.Target <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTarget, opts.Target)
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Balancer{aug: aug, opts: opts, rng: rand.New(rand.NewSource(seed))}, nil
}

// Balance processes every class directory under root in name order.
// Concurrent runs over the same tree are not supported.
func (b *Balancer) Balance(root string) (Stats, error) {
	var stats Stats

	entries, err := os.ReadDir(root)
	if err != nil {
		return stats, fmt.Errorf("reading dataset root: %w", err)
	}

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		cs, err := b.balanceClass(filepath.Join(root, e.Name()), e.Name())
		if err != nil {
			return stats, err
		}
		stats.Classes = append(stats.Classes, cs)
		switch {
		case cs.Found == 0:
			stats.Empty++
		case cs.Generated > 0:
			stats.Augmented++
			stats.Generated += cs.Generated
		default:
			stats.Satisfied++
		}
	}
	return stats, nil
}

func (b *Balancer) balanceClass(dir, class string) (ClassStats, error) {
	cs := ClassStats{Name: class}

	samples, err := Samples(dir)
	if err != nil {
		return cs, fmt.Errorf("class %q: %w", class, err)
	}
	cs.Found = len(samples)
	log.Printf("balance: Class '%s': Found %d images.", class, cs.Found)

	if cs.Found == 0 {
		log.Printf("balance: warning: class '%s' has no images, skipping", class)
		return cs, nil
	}
	if cs.Found >= b.opts.Target {
		return cs, nil
	}

	need := b.opts.Target - cs.Found
	log.Printf("balance:   -> Augmenting with %d new images...", need)
	for i := 0; i < need; i++ {
		src := samples[b.rng.Intn(len(samples))]
		dst, err := freshName(dir, class)
		if err != nil {
			return cs, err
		}
		if err := b.aug.Augment(src, dst, b.rng); err != nil {
			return cs, fmt.Errorf("class %q: augmenting %s: %w", class, filepath.Base(src), err)
		}
		cs.Generated++
	}
	return cs, nil
}

// Samples lists the training images in dir, sorted by name.
func Samples(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if !e.Type().IsRegular() || !img.IsTrainingFormat(e.Name()) {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

func freshName(dir, class string) (string, error) {
	for attempt := 0; attempt < 10; attempt++ {
		path := filepath.Join(dir, fmt.Sprintf("aug_%s_%s.jpg", class, uuid.NewString()))
		if _, err := os.Lstat(path); errors.Is(err, os.ErrNotExist) {
			return path, nil
		}
	}
	return "", fmt.Errorf("class %q: could not find a free file name", class)
}
