package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/celestial/internal/sim"
)

type ExportData struct {
	RunMetadata
	Steps   int          `json:"steps"`
	Samples []sim.Sample `json:"samples"`
}

// ExportJSON writes metadata and samples as one JSON document.
func ExportJSON(w io.Writer, meta RunMetadata, result *sim.Result) error {
	data := ExportData{RunMetadata: meta}
	if result != nil {
		data.Steps = result.StepsTaken
		data.Samples = result.Samples
		data.Metrics = result.Metrics
		data.EnergyDrift = result.EnergyDrift
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func ExportJSONFile(path string, meta RunMetadata, result *sim.Result) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return ExportJSON(file, meta, result)
}
