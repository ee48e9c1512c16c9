// Package storage persists sweep runs as a directory per run holding
// metadata.json and results.csv.
package storage

import (
	"cmp"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/san-kum/roverdyn/internal/solver"
	"github.com/san-kum/roverdyn/internal/sweep"
)

const (
	metadataFile = "metadata.json"
	resultsFile  = "results.csv"
)

var (
	ErrRunNotFound = errors.New("storage: run not found")
	ErrCorruptRun  = errors.New("storage: corrupt run")
)

var resultsHeader = []string{"slope", "crr", "omega", "speed", "feasible"}

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

// Summary is the JSON form of sweep.Stats; speeds are null when no cell
// was feasible.
type Summary struct {
	Cells      int      `json:"cells"`
	Feasible   int      `json:"feasible"`
	Infeasible int      `json:"infeasible"`
	MinSpeed   *float64 `json:"min_speed"`
	MaxSpeed   *float64 `json:"max_speed"`
	MeanSpeed  *float64 `json:"mean_speed"`
}

func SummaryOf(st sweep.Stats) Summary {
	opt := func(v float64) *float64 {
		if math.IsNaN(v) {
			return nil
		}
		return &v
	}
	return Summary{
		Cells:      st.Cells,
		Feasible:   st.Feasible,
		Infeasible: st.Infeasible,
		MinSpeed:   opt(st.MinSpeed),
		MaxSpeed:   opt(st.MaxSpeed),
		MeanSpeed:  opt(st.MeanSpeed),
	}
}

type RunMetadata struct {
	ID         string     `json:"id"`
	Kind       sweep.Kind `json:"kind"`
	Preset     string     `json:"preset,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
	Planet     string     `json:"planet"`
	Gravity    float64    `json:"g"`
	Mass       float64    `json:"mass"`
	Iterations int        `json:"iterations"`
	OmegaLow   float64    `json:"omega_low"`
	Fixed      float64    `json:"fixed"` // Crr of a slope sweep, slope of a Crr sweep
	Slopes     []float64  `json:"slopes"`
	Crrs       []float64  `json:"crrs"`
	Summary    Summary    `json:"summary"`
}

// Run is a loaded run: metadata plus every solved cell in row-major order.
type Run struct {
	Meta    RunMetadata
	Results []solver.Result
}

// NewRunID names a run after its sweep kind and creation time.
func NewRunID(kind sweep.Kind, now time.Time) string {
	return fmt.Sprintf("%s_%d", kind, now.UnixNano())
}

// SaveCurve persists a 1-D sweep.
func (s *Store) SaveCurve(meta RunMetadata, c *sweep.Curve) (string, error) {
	meta.Kind = c.Kind
	meta.Fixed = c.Fixed
	x := c.X()
	if c.Kind == sweep.KindCrr {
		meta.Crrs, meta.Slopes = x, []float64{c.Fixed}
	} else {
		meta.Slopes, meta.Crrs = x, []float64{c.Fixed}
	}
	meta.Summary = SummaryOf(c.Stats())
	return s.save(meta, c.Points)
}

// SaveSurface persists a 2-D sweep.
func (s *Store) SaveSurface(meta RunMetadata, surf *sweep.Surface) (string, error) {
	meta.Kind = sweep.KindGrid
	meta.Slopes = surf.Slopes
	meta.Crrs = surf.Crrs
	meta.Summary = SummaryOf(surf.Stats())
	return s.save(meta, surf.Results())
}

func (s *Store) save(meta RunMetadata, results []solver.Result) (string, error) {
	now := time.Now()
	if meta.ID == "" {
		meta.ID = NewRunID(meta.Kind, now)
	}
	if meta.Timestamp.IsZero() {
		meta.Timestamp = now
	}
	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}

	f, err := os.Create(filepath.Join(runDir, resultsFile))
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := WriteResultsCSV(f, results); err != nil {
		return "", err
	}
	return meta.ID, f.Close()
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return err
	}
	return f.Close()
}

// WriteResultsCSV writes one row per cell. Infeasible cells carry NaN.
func WriteResultsCSV(w io.Writer, results []solver.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(resultsHeader); err != nil {
		return err
	}
	for _, r := range results {
		row := []string{
			formatFloat(r.Slope),
			formatFloat(r.Crr),
			formatFloat(r.Omega),
			formatFloat(r.Speed),
			strconv.FormatBool(r.Feasible),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadResultsCSV parses the format written by WriteResultsCSV.
func ReadResultsCSV(r io.Reader) ([]solver.Result, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(resultsHeader)

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRun, err)
	}
	if len(records) == 0 || !slices.Equal(records[0], resultsHeader) {
		return nil, fmt.Errorf("%w: missing results header", ErrCorruptRun)
	}

	results := make([]solver.Result, 0, len(records)-1)
	for i, rec := range records[1:] {
		var vals [4]float64
		for j := range vals {
			v, err := strconv.ParseFloat(rec[j], 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrCorruptRun, i+2, err)
			}
			vals[j] = v
		}
		feasible, err := strconv.ParseBool(rec[4])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrCorruptRun, i+2, err)
		}
		results = append(results, solver.Result{
			Slope:    vals[0],
			Crr:      vals[1],
			Omega:    vals[2],
			Speed:    vals[3],
			Residual: math.NaN(),
			Feasible: feasible,
		})
	}
	return results, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
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

	slices.SortFunc(runs, func(a, b RunMetadata) int {
		if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return runs, nil
}

// Latest returns the ID of the most recent run.
func (s *Store) Latest() (string, error) {
	runs, err := s.List()
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", ErrRunNotFound
	}
	return runs[len(runs)-1].ID, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptRun, runID, err)
	}
	return &meta, nil
}

func (s *Store) LoadResults(runID string) ([]solver.Result, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, resultsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	defer f.Close()
	return ReadResultsCSV(f)
}

func (s *Store) LoadRun(runID string) (*Run, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	results, err := s.LoadResults(runID)
	if err != nil {
		return nil, err
	}
	return &Run{Meta: *meta, Results: results}, nil
}

// Curve rebuilds a 1-D sweep from a loaded slope or Crr run.
func (r *Run) Curve() (*sweep.Curve, error) {
	if r.Meta.Kind == sweep.KindGrid {
		return nil, fmt.Errorf("run %s is a grid, not a curve", r.Meta.ID)
	}
	return &sweep.Curve{Kind: r.Meta.Kind, Fixed: r.Meta.Fixed, Points: r.Results}, nil
}

// Surface rebuilds a 2-D sweep from a loaded grid run.
func (r *Run) Surface() (*sweep.Surface, error) {
	if r.Meta.Kind != sweep.KindGrid {
		return nil, fmt.Errorf("run %s is a %s sweep, not a grid", r.Meta.ID, r.Meta.Kind)
	}
	ns, nc := len(r.Meta.Slopes), len(r.Meta.Crrs)
	if ns*nc != len(r.Results) {
		return nil, fmt.Errorf("%w: %s: %d results for a %dx%d grid", ErrCorruptRun, r.Meta.ID, len(r.Results), ns, nc)
	}
	cells := make([][]solver.Result, ns)
	for i := range cells {
		cells[i] = r.Results[i*nc : (i+1)*nc : (i+1)*nc]
	}
	return &sweep.Surface{Slopes: r.Meta.Slopes, Crrs: r.Meta.Crrs, Cells: cells}, nil
}
