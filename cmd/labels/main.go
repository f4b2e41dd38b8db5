// Command labels writes the class-name metadata file next to a model
// checkpoint so the live loop does not depend on the training directory.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"cropwatch/internal/classify"
	"cropwatch/internal/decision"
)

func main() {
	model := flag.String("model", "models/best_wheat_model_balanced.onnx", "Model checkpoint path")
	dataDir := flag.String("data", "data/wheat_split/train", "Training set root; class names are its sorted subdirectories")
	classes := flag.String("classes", "", "Comma-separated class names in model output order (overrides -data)")
	flag.Parse()

	var labels []string
	if *classes != "" {
		for _, c := range strings.Split(*classes, ",") {
			if c = strings.TrimSpace(c); c != "" {
				labels = append(labels, c)
			}
		}
	} else {
		var err error
		labels, err = classify.LabelsFromDir(*dataDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to list classes: %v\n", err)
			os.Exit(1)
		}
	}

	path := classify.SidecarPath(*model)
	if err := classify.SaveLabels(path, labels); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", path, err)
		os.Exit(1)
	}

	fmt.Printf("Wrote %d classes to %s\n", len(labels), path)
	rules := decision.DefaultRuleConfig()
	tax := classify.NewTaxonomy(rules.HealthyClass, rules.PestClasses)
	parts := tax.Partition(labels)
	for _, kind := range []classify.Kind{classify.KindHealthy, classify.KindPest, classify.KindDisease} {
		fmt.Printf("  %-8s %s\n", kind, strings.Join(parts[kind], ", "))
	}
	if missing := tax.Missing(labels); len(missing) > 0 {
		fmt.Fprintf(os.Stderr, "Warning: default rule classes not in label set: %v\n", missing)
	}
}
