package classify

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LabelFile is the on-disk label metadata stored next to a model artifact.
type LabelFile struct {
	Classes []string `json:"classes"`
}

// SidecarPath returns the label metadata path for a model file.
func SidecarPath(modelPath string) string {
	return strings.TrimSuffix(modelPath, filepath.Ext(modelPath)) + ".labels.json"
}

// LoadLabels reads a label metadata file.
func LoadLabels(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var lf LabelFile
	if err := json.Unmarshal(data, &lf); err != nil {
		return nil, fmt.Errorf("failed to parse labels %s: %w", path, err)
	}
	if len(lf.Classes) == 0 {
		return nil, fmt.Errorf("labels file %s lists no classes", path)
	}
	return lf.Classes, nil
}

// SaveLabels writes a label metadata file.
func SaveLabels(path string, labels []string) error {
	if len(labels) == 0 {
		return errors.New("no labels to save")
	}
	data, err := json.MarshalIndent(LabelFile{Classes: labels}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// LabelsFromDir lists the class subdirectories of a training root in
// alphabetical order, which is the index order used during training.
func LabelsFromDir(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	var labels []string
	for _, e := range entries {
		if e.IsDir() {
			labels = append(labels, e.Name())
		}
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("no class directories under %s", root)
	}
	sort.Strings(labels)
	return labels, nil
}

// ResolveLabels prefers the sidecar next to the model and falls back to the
// training directory listing. It returns where the labels came from.
func ResolveLabels(modelPath, dataDir string) ([]string, string, error) {
	sidecar := SidecarPath(modelPath)
	labels, err := LoadLabels(sidecar)
	if err == nil {
		return labels, sidecar, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, "", fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}

	log.Printf("classify: no label metadata at %s, falling back to directory listing of %s", sidecar, dataDir)
	labels, err = LabelsFromDir(dataDir)
	if err != nil {
		return nil, "", fmt.Errorf("%w: cannot determine class names: %v", ErrModelUnavailable, err)
	}
	return labels, dataDir, nil
}
