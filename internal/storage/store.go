package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/celestial/internal/physics"
	"github.com/san-kum/celestial/internal/sim"
	"github.com/san-kum/celestial/internal/validate"
)

const (
	metadataFile   = "metadata.json"
	trajectoryFile = "trajectory.csv"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// Check is one persisted validation result.
type Check struct {
	Name      string  `json:"name"`
	Reference float64 `json:"reference"`
	Observed  float64 `json:"observed"`
	Tolerance float64 `json:"tolerance"`
	Passed    bool    `json:"passed"`
}

// ChecksFrom flattens a validation report for persistence.
func ChecksFrom(r *validate.Report) []Check {
	if r == nil {
		return nil
	}
	checks := make([]Check, len(r.Results))
	for i, res := range r.Results {
		checks[i] = Check{
			Name:      res.Name,
			Reference: res.Reference,
			Observed:  res.Observed,
			Tolerance: res.Tolerance,
			Passed:    res.Passed(),
		}
	}
	return checks
}

// Offload summarises an accelerator session.
type Offload struct {
	Device     string        `json:"device"`
	Outcome    string        `json:"outcome"`
	Polls      int           `json:"polls"`
	KeepAlives int           `json:"keepalives"`
	Elapsed    time.Duration `json:"elapsed_ns"`
	Error      string        `json:"error,omitempty"`
}

type RunMetadata struct {
	ID          string             `json:"id"`
	Scenario    string             `json:"scenario"`
	Timestamp   time.Time          `json:"timestamp"`
	Seed        int64              `json:"seed"`
	Dt          float32            `json:"dt"`
	Iterations  int                `json:"iterations"`
	Refinements int                `json:"refinements"`
	SampleEvery int                `json:"sample_every"`
	Bodies      []string           `json:"bodies"`
	Metrics     map[string]float64 `json:"metrics"`
	EnergyDrift float64            `json:"energy_drift"`
	Checks      []Check            `json:"checks,omitempty"`
	Offload     *Offload           `json:"offload,omitempty"`
}

// Save writes meta and the sampled trajectory under a new run directory and
// returns its id. ID and Timestamp are assigned here.
func (s *Store) Save(meta RunMetadata, result *sim.Result) (string, error) {
	now := time.Now()
	runID := fmt.Sprintf("%s_%d", meta.Scenario, now.Unix())
	for n := 2; ; n++ {
		if _, err := os.Stat(filepath.Join(s.baseDir, runID)); os.IsNotExist(err) {
			break
		}
		runID = fmt.Sprintf("%s_%d-%d", meta.Scenario, now.Unix(), n)
	}
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta.ID = runID
	meta.Timestamp = now
	if result != nil {
		meta.Metrics = result.Metrics
		meta.EnergyDrift = result.EnergyDrift
	}

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, trajectoryFile))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	if err := w.Write([]string{"step", "body", "x", "y", "z", "vx", "vy", "vz"}); err != nil {
		return "", err
	}

	if result != nil {
		for _, sample := range result.Samples {
			for i, b := range sample.Bodies {
				row := []string{strconv.Itoa(sample.Step), strconv.Itoa(i)}
				for _, v := range []float32{b.X, b.Y, b.Z, b.VX, b.VY, b.VZ} {
					row = append(row, strconv.FormatFloat(float64(v), 'g', -1, 32))
				}
				if err := w.Write(row); err != nil {
					return "", err
				}
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}

	return runID, nil
}

// List returns every readable run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}

		runs = append(runs, *meta)
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// LoadTrajectory rebuilds the recorded samples. Mass and size are not
// stored and come back zero.
func (s *Store) LoadTrajectory(runID string) ([]sim.Sample, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, trajectoryFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = 8

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	samples := make([]sim.Sample, 0)
	for line, record := range records {
		if line == 0 {
			continue
		}

		step, err := strconv.Atoi(record[0])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", trajectoryFile, line+1, err)
		}
		body, err := strconv.Atoi(record[1])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", trajectoryFile, line+1, err)
		}

		var vals [6]float32
		for j := range vals {
			v, err := strconv.ParseFloat(record[2+j], 32)
			if err != nil {
				return nil, fmt.Errorf("%s line %d: %w", trajectoryFile, line+1, err)
			}
			vals[j] = float32(v)
		}

		if len(samples) == 0 || samples[len(samples)-1].Step != step {
			samples = append(samples, sim.Sample{Step: step})
		}
		last := &samples[len(samples)-1]
		for len(last.Bodies) <= body {
			last.Bodies = append(last.Bodies, physics.Body{})
		}
		last.Bodies[body] = physics.Body{
			X: vals[0], Y: vals[1], Z: vals[2],
			VX: vals[3], VY: vals[4], VZ: vals[5],
		}
	}

	return samples, nil
}
