// Package storage persists sampled runs as a JSON metadata file plus a CSV of
// states, one directory per run.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/resodyn/internal/config"
	"github.com/san-kum/resodyn/internal/sim"
)

var ErrColumns = errors.New("storage: column names do not match the state length")

type Store struct {
	baseDir string
	now     func() time.Time
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir, now: time.Now}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// RunInfo describes what was integrated.
type RunInfo struct {
	Label      string                   `json:"label"`
	Variant    string                   `json:"variant"`
	Method     string                   `json:"method"`
	Columns    []string                 `json:"columns"`
	Resonances []config.ResonanceConfig `json:"resonances,omitempty"`
}

type RunMetadata struct {
	RunInfo
	ID          string             `json:"id"`
	Timestamp   time.Time          `json:"timestamp"`
	Samples     int                `json:"samples"`
	EnergyDrift float64            `json:"energy_drift"`
	Metrics     map[string]float64 `json:"metrics"`
}

// newMetadata validates the column names against result, defaulting them to
// x0, x1, ..., and assigns the run id.
func newMetadata(info RunInfo, result *sim.Result, now time.Time) (RunMetadata, error) {
	if len(result.States) > 0 && info.Columns != nil && len(info.Columns) != len(result.States[0]) {
		return RunMetadata{}, fmt.Errorf("%w: %d names, %d components", ErrColumns, len(info.Columns), len(result.States[0]))
	}
	if info.Columns == nil && len(result.States) > 0 {
		info.Columns = make([]string, len(result.States[0]))
		for i := range info.Columns {
			info.Columns[i] = fmt.Sprintf("x%d", i)
		}
	}
	return RunMetadata{
		RunInfo:     info,
		ID:          fmt.Sprintf("%s_%d", info.Label, now.UnixNano()),
		Timestamp:   now,
		Samples:     result.Samples,
		EnergyDrift: result.EnergyDrift,
		Metrics:     result.Metrics,
	}, nil
}

// Save writes result under a new run directory and returns its id. Columns
// name the state components; nil uses x0, x1, ...
func (s *Store) Save(info RunInfo, result *sim.Result) (string, error) {
	meta, err := newMetadata(info, result, s.now())
	if err != nil {
		return "", err
	}
	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, "metadata.json"), meta); err != nil {
		return "", err
	}
	if err := writeStates(filepath.Join(runDir, "states.csv"), meta.Columns, result); err != nil {
		return "", err
	}
	return meta.ID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeStates(path string, columns []string, result *sim.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(append([]string{"time"}, columns...)); err != nil {
		return err
	}
	for i, x := range result.States {
		row := make([]string, 0, len(x)+1)
		row = append(row, strconv.FormatFloat(result.Times[i], 'g', -1, 64))
		for _, v := range x {
			row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns the metadata of every readable run, oldest first.
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
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadStates reads back the sampled states and their times.
func (s *Store) LoadStates(runID string) ([][]float64, []float64, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, "states.csv"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) < 2 {
		return [][]float64{}, []float64{}, nil
	}

	times := make([]float64, 0, len(records)-1)
	states := make([][]float64, 0, len(records)-1)
	for i, record := range records[1:] {
		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("storage: row %d: %w", i+1, err)
		}
		state := make([]float64, len(record)-1)
		for j, field := range record[1:] {
			if state[j], err = strconv.ParseFloat(field, 64); err != nil {
				return nil, nil, fmt.Errorf("storage: row %d column %d: %w", i+1, j+1, err)
			}
		}
		times = append(times, t)
		states = append(states, state)
	}
	return states, times, nil
}
