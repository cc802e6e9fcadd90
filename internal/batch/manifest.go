package batch

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"
)

// Manifest summarizes a batch run for downstream tooling.
type Manifest struct {
	GeneratedAt time.Time `json:"generated_at"`
	Total       int       `json:"total"`
	Succeeded   int       `json:"succeeded"`
	Failed      int       `json:"failed"`
	Results     []Result  `json:"results"`
}

// WriteManifest writes the run summary as indented JSON.
func WriteManifest(path string, results []Result) error {
	m := Manifest{
		GeneratedAt: time.Now().UTC(),
		Total:       len(results),
		Results:     results,
	}
	for _, r := range results {
		if r.Success {
			m.Succeeded++
		} else {
			m.Failed++
		}
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("batch: marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("batch: write manifest %s: %w", path, err)
	}
	return nil
}
