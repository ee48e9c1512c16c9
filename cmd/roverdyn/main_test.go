package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/roverdyn/internal/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSolveCommand(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "solve", "--data", dir, "--slope", "0", "--crr", "0.15")
	if err != nil {
		t.Fatalf("solve: %v\n%s", err, out)
	}
	for _, want := range []string{"speed", "motor omega", "mars"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestSolveInfeasible(t *testing.T) {
	out, err := execute(t, "solve", "--data", t.TempDir(), "--slope", "-15", "--crr", "0.01")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "no terminal speed") {
		t.Errorf("output:\n%s", out)
	}
}

func TestSolveRejectsBadCrr(t *testing.T) {
	if _, err := execute(t, "solve", "--data", t.TempDir(), "--crr", "0"); err == nil {
		t.Fatal("expected error for zero Crr")
	}
}

func TestSweepPersistsRun(t *testing.T) {
	dir := t.TempDir()
	metrics := filepath.Join(dir, "metrics.prom")
	out, err := execute(t, "sweep", "slope", "--data", dir, "--points", "6", "--workers", "2", "--metrics-out", metrics)
	if err != nil {
		t.Fatalf("sweep: %v\n%s", err, out)
	}
	if !strings.Contains(out, "run id: slope_") {
		t.Errorf("missing run id:\n%s", out)
	}

	prom, err := os.ReadFile(metrics)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(prom), "roverdyn_solves_total") {
		t.Errorf("metrics file missing counter:\n%s", prom)
	}

	out, err = execute(t, "list", "--data", dir)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "slope_") {
		t.Errorf("list output:\n%s", out)
	}

	out, err = execute(t, "export-json", "--data", dir)
	if err != nil {
		t.Fatal(err)
	}
	var data struct {
		Run struct {
			Kind string `json:"kind"`
		} `json:"run"`
		Results []json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal([]byte(out), &data); err != nil {
		t.Fatalf("export-json not valid JSON: %v\n%s", err, out)
	}
	if data.Run.Kind != "slope" || len(data.Results) != 6 {
		t.Errorf("kind %q with %d results", data.Run.Kind, len(data.Results))
	}
}

func TestGridSweepExports(t *testing.T) {
	dir := t.TempDir()
	if out, err := execute(t, "sweep", "grid", "--data", dir, "--points", "3"); err != nil {
		t.Fatalf("sweep: %v\n%s", err, out)
	}

	out, err := execute(t, "export-csv", "--data", dir, "--matrix")
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 {
		t.Errorf("matrix has %d lines, want header + 3:\n%s", len(lines), out)
	}

	out, err = execute(t, "show", "--data", dir)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "grid") {
		t.Errorf("show output:\n%s", out)
	}
}

func TestShowWithoutRuns(t *testing.T) {
	if _, err := execute(t, "show", "--data", t.TempDir()); err == nil {
		t.Fatal("expected error with no runs")
	}
}

func TestConfigInit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rover.yaml")

	if _, err := execute(t, "config", "init", path, "--preset", "lunar", "--data", dir); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "config", "init", path, "--data", dir); err == nil {
		t.Error("expected refusal to overwrite")
	}

	out, err := execute(t, "solve", "--config", path, "--data", dir)
	if err != nil {
		t.Fatalf("solve with written config: %v\n%s", err, out)
	}
	if !strings.Contains(out, "moon") {
		t.Errorf("config not applied:\n%s", out)
	}
}

func TestUnknownPreset(t *testing.T) {
	if _, err := execute(t, "mass", "--preset", "venus"); err == nil {
		t.Fatal("expected unknown preset error")
	}
}

func TestMassAndCurves(t *testing.T) {
	out, err := execute(t, "mass", "--data", t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "869") {
		t.Errorf("mass output:\n%s", out)
	}

	out, err = execute(t, "motor", "--points", "5", "--data", t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "TORQUE") {
		t.Errorf("motor output:\n%s", out)
	}

	if _, err := execute(t, "reducer", "--points", "5", "--data", t.TempDir()); err != nil {
		t.Fatal(err)
	}
}

func TestPresetsListsMasses(t *testing.T) {
	out, err := execute(t, "presets", "--data", t.TempDir())
	if err != nil {
		t.Fatalf("presets: %v\n%s", err, out)
	}
	want := map[string]string{
		"mars-baseline": "869",
		"mars-heavy":    "1094",
		"lunar":         "869",
	}
	for name, mass := range want {
		var row string
		for _, line := range strings.Split(out, "\n") {
			if strings.HasPrefix(line, name+" ") {
				row = line
			}
		}
		if row == "" {
			t.Errorf("preset %s missing:\n%s", name, out)
			continue
		}
		if !strings.Contains(row, mass) {
			t.Errorf("preset %s row %q missing mass %s", name, row, mass)
		}
	}
	if strings.Contains(out, "NaN") {
		t.Errorf("unexpected NaN mass:\n%s", out)
	}
}

func TestPresetsRejectsBrokenPreset(t *testing.T) {
	config.Presets["broken"] = func() *config.Config {
		cfg := config.DefaultConfig()
		cfg.Rover.Chassis.Mass = nil
		return cfg
	}
	defer delete(config.Presets, "broken")

	if _, err := execute(t, "presets", "--data", t.TempDir()); err == nil {
		t.Fatal("expected an error for a preset without chassis mass")
	}
}
