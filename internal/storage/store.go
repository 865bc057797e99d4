package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/sdekit/internal/experiment"
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

type SweepMetadata struct {
	ID         string             `json:"id"`
	Model      string             `json:"model"`
	Transforms []string           `json:"transforms,omitempty"`
	Timestamp  time.Time          `json:"timestamp"`
	Variable   string             `json:"variable"`
	From       float64            `json:"from"`
	To         float64            `json:"to"`
	Points     int                `json:"points"`
	Time       float64            `json:"time"`
	Columns    []string           `json:"columns"`
	Invalid    []int              `json:"invalid,omitempty"`
	Params     map[string]float64 `json:"params,omitempty"`
}

// Save writes metadata.json and values.csv under a new sweep directory and
// returns its ID.
func (s *Store) Save(cfg experiment.Config, res *experiment.Result) (string, error) {
	now := time.Now()
	id := fmt.Sprintf("%s_%s_%d", cfg.Model, res.Variable, now.UnixNano())
	dir := filepath.Join(s.baseDir, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	meta := SweepMetadata{
		ID:         id,
		Model:      cfg.Model,
		Transforms: cfg.Transforms,
		Timestamp:  now,
		Variable:   res.Variable,
		From:       cfg.From,
		To:         cfg.To,
		Points:     len(res.Grid),
		Time:       cfg.Time,
		Columns:    res.Columns,
		Params:     cfg.Params,
	}
	for _, e := range res.Invalid {
		meta.Invalid = append(meta.Invalid, e.Point)
	}

	if err := writeJSON(filepath.Join(dir, "metadata.json"), meta); err != nil {
		return "", err
	}
	if err := writeValues(filepath.Join(dir, "values.csv"), res); err != nil {
		return "", err
	}
	return id, nil
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

func writeValues(path string, res *experiment.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := append([]string{res.Variable}, res.Columns...)
	if err := w.Write(header); err != nil {
		return err
	}
	for i, v := range res.Grid {
		row := []string{strconv.FormatFloat(v, 'g', -1, 64)}
		for _, val := range res.Values[i] {
			row = append(row, strconv.FormatFloat(val, 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns the stored sweeps, oldest first.
func (s *Store) List() ([]SweepMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []SweepMetadata{}, nil
		}
		return nil, err
	}

	sweeps := make([]SweepMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		sweeps = append(sweeps, *meta)
	}
	sort.Slice(sweeps, func(i, j int) bool {
		return sweeps[i].Timestamp.Before(sweeps[j].Timestamp)
	})
	return sweeps, nil
}

func (s *Store) Load(id string) (*SweepMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, id, "metadata.json"))
	if err != nil {
		return nil, err
	}
	var meta SweepMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("sweep %s: %w", id, err)
	}
	return &meta, nil
}

// LoadValues reads values.csv back as the grid and one row per grid point.
// Unparseable cells read as NaN so columns stay aligned.
func (s *Store) LoadValues(id string) (grid []float64, values [][]float64, err error) {
	f, err := os.Open(filepath.Join(s.baseDir, id, "values.csv"))
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("sweep %s: %w", id, err)
	}
	if len(records) < 2 {
		return []float64{}, [][]float64{}, nil
	}

	grid = make([]float64, 0, len(records)-1)
	values = make([][]float64, 0, len(records)-1)
	for _, record := range records[1:] {
		v, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("sweep %s: %w", id, err)
		}
		grid = append(grid, v)

		row := make([]float64, len(record)-1)
		for j, cell := range record[1:] {
			row[j] = parseCell(cell)
		}
		values = append(values, row)
	}
	return grid, values, nil
}

func parseCell(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
