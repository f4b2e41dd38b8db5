// Command balance tops up every class directory of a training set to a
// target sample count with augmented images.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"cropwatch/internal/augment"
	"cropwatch/internal/dataset"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	root := flag.String("root", "data/wheat_split/train", "Training set root (one subdirectory per class)")
	target := flag.Int("target", dataset.DefaultTarget, "Samples per class after balancing")
	seed := flag.Int64("seed", 0, "Random seed (0 = time based)")
	flag.Parse()

	b, err := dataset.NewBalancer(augment.New(), dataset.Options{Target: *target, Seed: *seed})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Balancing %s to %d images per class\n", *root, *target)
	stats, err := b.Balance(*root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Balancing failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\n%-20s %8s %10s\n", "Class", "Found", "Generated")
	for _, c := range stats.Classes {
		fmt.Printf("%-20s %8d %10d\n", c.Name, c.Found, c.Generated)
	}
	fmt.Printf("\n%d classes augmented, %d already at target, %d empty; %d images written\n",
		stats.Augmented, stats.Satisfied, stats.Empty, stats.Generated)
	if stats.Empty > 0 {
		fmt.Fprintf(os.Stderr, "Warning: %d classes have no images and were left empty\n", stats.Empty)
	}
}
