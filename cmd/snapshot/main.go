// Command snapshot classifies one still image and prints the spray
// recommendation, for reviewing field photos offline.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"cropwatch/internal/analysis"
	"cropwatch/internal/classify"
	"cropwatch/internal/config"
	"cropwatch/internal/decision"
	"cropwatch/internal/image"
	"cropwatch/internal/report"
)

func main() {
	imagePath := flag.String("image", "", "Path to a field image (TIFF, PNG, JPEG or WebP)")
	configPath := flag.String("config", "", "Path to config file (default: user config dir)")
	model := flag.String("model", "", "Model checkpoint path (overrides config)")
	dataDir := flag.String("data", "", "Training set root for class names when no label file exists (overrides config)")
	area := flag.Float64("area", 0, "Field area in square metres (overrides config)")
	asJSON := flag.Bool("json", false, "Print the report as JSON")
	flag.Parse()

	if *imagePath == "" {
		fmt.Println("Usage: snapshot -image <path> [-config file] [-model path] [-area 1000] [-json]")
		os.Exit(1)
	}

	frame, err := image.Load(*imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load image: %v\n", err)
		os.Exit(1)
	}
	if !*asJSON {
		fmt.Printf("Loaded image: %dx%d pixels\n", frame.Width, frame.Height)
	}

	cfg, err := config.Resolve(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config: %v\n", err)
		os.Exit(1)
	}
	applyFlags(cfg, *model, *dataDir, *area)

	labels, err := labelsFor(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL ERROR: %v\n", err)
		os.Exit(1)
	}
	a, err := analysis.Open(cfg.Model.Path, labels)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL ERROR: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	engine, err := decision.NewEngine(cfg.Rules)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Rules: %v\n", err)
		os.Exit(1)
	}

	res, err := a.Analyze(frame)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Analysis failed: %v\n", err)
		os.Exit(1)
	}
	rec, err := engine.Decide(res, cfg.Loop.FieldAreaSqm)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Decision failed: %v\n", err)
		os.Exit(1)
	}

	at := frame.CapturedAt
	if at.IsZero() {
		at = time.Now()
	}
	r := report.NewAnalysis(at, res, rec, cfg.Loop.FieldAreaSqm)
	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			fmt.Fprintf(os.Stderr, "Encoding report: %v\n", err)
			os.Exit(1)
		}
		return
	}
	fmt.Println()
	fmt.Println(report.Format(r))
}

// applyFlags lets command-line values override the loaded config so a
// snapshot decides with the same rules as the live loop.
func applyFlags(cfg *config.Config, model, dataDir string, area float64) {
	if model != "" {
		cfg.Model.Path = model
	}
	if dataDir != "" {
		cfg.Model.DataDir = dataDir
	}
	if area != 0 {
		cfg.Loop.FieldAreaSqm = area
	}
}

func labelsFor(cfg *config.Config) ([]string, error) {
	if len(cfg.Model.Labels) > 0 {
		return cfg.Model.Labels, nil
	}
	labels, _, err := classify.ResolveLabels(cfg.Model.Path, cfg.Model.DataDir)
	return labels, err
}
