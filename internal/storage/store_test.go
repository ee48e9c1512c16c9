package storage

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/san-kum/roverdyn/internal/solver"
	"github.com/san-kum/roverdyn/internal/sweep"
)

func testSurface() *sweep.Surface {
	nan := math.NaN()
	return &sweep.Surface{
		Slopes: []float64{-15, 0},
		Crrs:   []float64{0.01, 0.3},
		Cells: [][]solver.Result{
			{
				{Slope: -15, Crr: 0.01, Omega: nan, Speed: nan, Residual: nan},
				{Slope: -15, Crr: 0.3, Omega: 3.7, Speed: 0.362, Feasible: true},
			},
			{
				{Slope: 0, Crr: 0.01, Omega: 3.79, Speed: 0.371, Feasible: true},
				{Slope: 0, Crr: 0.3, Omega: 3.45, Speed: 0.338, Feasible: true},
			},
		},
	}
}

func TestStoreSaveLoadSurface(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runID, err := st.SaveSurface(RunMetadata{Planet: "mars", Gravity: 3.72, Mass: 869, Iterations: 60}, testSurface())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if !strings.HasPrefix(runID, "grid_") {
		t.Errorf("run id = %q, want grid_ prefix", runID)
	}

	run, err := st.LoadRun(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if run.Meta.Kind != sweep.KindGrid || run.Meta.Mass != 869 {
		t.Errorf("metadata = %+v", run.Meta)
	}
	if run.Meta.Summary.Cells != 4 || run.Meta.Summary.Infeasible != 1 {
		t.Errorf("summary = %+v", run.Meta.Summary)
	}
	if run.Meta.Summary.MaxSpeed == nil || *run.Meta.Summary.MaxSpeed != 0.371 {
		t.Errorf("max speed = %v", run.Meta.Summary.MaxSpeed)
	}

	surf, err := run.Surface()
	if err != nil {
		t.Fatalf("surface: %v", err)
	}
	if !math.IsNaN(surf.At(0, 0).Speed) || surf.At(0, 0).Feasible {
		t.Errorf("infeasible cell lost its NaN: %+v", surf.At(0, 0))
	}
	if surf.At(1, 1).Speed != 0.338 || surf.At(1, 1).Crr != 0.3 {
		t.Errorf("cell [1][1] = %+v", surf.At(1, 1))
	}
	if _, err := run.Curve(); err == nil {
		t.Error("expected error rebuilding a curve from a grid run")
	}
}

func TestStoreSaveLoadCurve(t *testing.T) {
	st := New(t.TempDir())
	c := &sweep.Curve{
		Kind:  sweep.KindCrr,
		Fixed: 5,
		Points: []solver.Result{
			{Slope: 5, Crr: 0.1, Omega: 3.5, Speed: 0.34, Feasible: true},
			{Slope: 5, Crr: 0.2, Omega: 3.2, Speed: 0.31, Feasible: true},
		},
	}
	runID, err := st.SaveCurve(RunMetadata{}, c)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	run, err := st.LoadRun(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(run.Meta.Crrs) != 2 || run.Meta.Slopes[0] != 5 || run.Meta.Fixed != 5 {
		t.Errorf("metadata axes = %+v / %+v", run.Meta.Slopes, run.Meta.Crrs)
	}
	got, err := run.Curve()
	if err != nil {
		t.Fatal(err)
	}
	if got.Kind != sweep.KindCrr || got.X()[1] != 0.2 {
		t.Errorf("curve = %+v", got)
	}
	if _, err := run.Surface(); err == nil {
		t.Error("expected error rebuilding a surface from a curve run")
	}
}

func TestStoreList(t *testing.T) {
	st := New(t.TempDir())

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}
	if _, err := st.Latest(); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Latest on empty store = %v", err)
	}

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"b", "a", "c"} {
		meta := RunMetadata{ID: id, Timestamp: base.Add(time.Duration(i) * time.Minute)}
		if _, err := st.SaveSurface(meta, testSurface()); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.MkdirAll(filepath.Join(st.Dir(), "junk"), 0755); err != nil {
		t.Fatal(err)
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	if runs[0].ID != "b" || runs[2].ID != "c" {
		t.Errorf("runs not ordered by time: %s %s %s", runs[0].ID, runs[1].ID, runs[2].ID)
	}
	if latest, _ := st.Latest(); latest != "c" {
		t.Errorf("latest = %q, want c", latest)
	}
}

func TestStoreFileStructure(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	runID, err := st.SaveSurface(RunMetadata{}, testSurface())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	for _, name := range []string{"metadata.json", "results.csv"} {
		if _, err := os.Stat(filepath.Join(tmpDir, runID, name)); os.IsNotExist(err) {
			t.Errorf("%s not created", name)
		}
	}

	data, err := os.ReadFile(filepath.Join(tmpDir, runID, "results.csv"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if lines[0] != "slope,crr,omega,speed,feasible" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "-15,0.01,NaN,NaN,false" {
		t.Errorf("infeasible row = %q", lines[1])
	}
}

func TestLoadMissingRun(t *testing.T) {
	st := New(t.TempDir())
	if _, err := st.Load("nope"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Load = %v, want ErrRunNotFound", err)
	}
	if _, err := st.LoadResults("nope"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("LoadResults = %v, want ErrRunNotFound", err)
	}
}

func TestReadResultsCSVRejectsCorruption(t *testing.T) {
	tests := map[string]string{
		"empty":        "",
		"wrong header": "a,b,c,d,e\n",
		"bad float":    "slope,crr,omega,speed,feasible\nx,0.1,1,1,true\n",
		"bad bool":     "slope,crr,omega,speed,feasible\n0,0.1,1,1,maybe\n",
		"short row":    "slope,crr,omega,speed,feasible\n0,0.1\n",
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ReadResultsCSV(strings.NewReader(in)); !errors.Is(err, ErrCorruptRun) {
				t.Errorf("err = %v, want ErrCorruptRun", err)
			}
		})
	}
}

func TestResultsCSVRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	in := testSurface().Results()
	if err := WriteResultsCSV(&buf, in); err != nil {
		t.Fatal(err)
	}
	out, err := ReadResultsCSV(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != len(in) {
		t.Fatalf("got %d rows, want %d", len(out), len(in))
	}
	for i := range in {
		if in[i].Feasible != out[i].Feasible || in[i].Crr != out[i].Crr {
			t.Errorf("row %d: %+v != %+v", i, out[i], in[i])
		}
	}
}
