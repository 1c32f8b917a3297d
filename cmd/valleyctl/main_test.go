package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// executeCommand runs the root command with args and returns its stdout.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), err
}

// isolateEnv clears overrides that would leak the caller's environment into
// the command under test.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"VALLEYCROSS_LOG_LEVEL",
		"VALLEYCROSS_STORE",
		"VALLEYCROSS_DB_PATH",
		"VALLEYCROSS_OUT",
		"VALLEYCROSS_SEED",
	} {
		t.Setenv(key, "")
	}
}

func TestNewVersionCmd(t *testing.T) {
	cmd := newVersionCmd()
	if cmd.Use != "version" {
		t.Errorf("Use = %q, want %q", cmd.Use, "version")
	}

	out, err := executeCommand(t, "version", "--json")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	var payload map[string]string
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode version json %q: %v", out, err)
	}
	if payload["version"] != version {
		t.Errorf("version = %q, want %q", payload["version"], version)
	}
}

func TestRootRegistersSubcommands(t *testing.T) {
	root := newRootCmd()
	want := []string{"version", "run", "sweep", "runs", "show", "plot", "export"}
	for _, name := range want {
		found := false
		for _, cmd := range root.Commands() {
			if cmd.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestRunCommandWritesOutputs(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	prefix := filepath.Join(dir, "out") + string(filepath.Separator)
	artifacts := filepath.Join(dir, "runs")

	out, err := executeCommand(t,
		"run", "1000", "1e-5", "0.5", "0.1",
		"--tmax", "200", "--tstep", "10", "--seed", "42",
		"--out", prefix,
		"--artifacts-dir", artifacts,
		"--json",
	)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	var summary struct {
		RunID        string `json:"run_id"`
		Outcome      string `json:"outcome"`
		ArtifactsDir string
	}
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode run json %q: %v", out, err)
	}
	if summary.RunID == "" || summary.ArtifactsDir == "" {
		t.Fatalf("unexpected run output: %+v", summary)
	}

	record, err := os.ReadFile(prefix + "params.txt")
	if err != nil {
		t.Fatalf("read params: %v", err)
	}
	if want := "N = 1e+03\nmu = 1e-05\nr = 0.5\ns = 0.1\ntstep = 10\nseed = 42\n"; string(record) != want {
		t.Fatalf("params file = %q, want %q", record, want)
	}
	trajectory, err := os.ReadFile(prefix + "trajectory.txt")
	if err != nil {
		t.Fatalf("read trajectory: %v", err)
	}
	if !strings.HasPrefix(string(trajectory), "0 ") {
		t.Fatalf("expected trajectory to start at generation 0, got %q", firstLine(string(trajectory)))
	}

	listed, err := executeCommand(t, "runs", "--artifacts-dir", artifacts)
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if !strings.Contains(listed, summary.RunID) {
		t.Fatalf("expected run %s in listing:\n%s", summary.RunID, listed)
	}

	shown, err := executeCommand(t, "show", "--latest", "--artifacts-dir", artifacts)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(shown, "run "+summary.RunID) || !strings.Contains(shown, "N=1,000") {
		t.Fatalf("unexpected show output:\n%s", shown)
	}

	plotPath := filepath.Join(dir, "trajectory.svg")
	if _, err := executeCommand(t, "plot", "--trajectory", prefix+"trajectory.txt", "-o", plotPath); err != nil {
		t.Fatalf("plot: %v", err)
	}
	if _, err := os.Stat(plotPath); err != nil {
		t.Fatalf("expected plot file: %v", err)
	}

	exportDir := filepath.Join(dir, "exports")
	if _, err := executeCommand(t, "export", summary.RunID, "--artifacts-dir", artifacts, "--out-dir", exportDir); err != nil {
		t.Fatalf("export: %v", err)
	}
	if _, err := os.Stat(filepath.Join(exportDir, summary.RunID, "summary.json")); err != nil {
		t.Fatalf("expected exported summary: %v", err)
	}
}

func TestRunCommandRejectsInvalidInput(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	cases := map[string][]string{
		"non-numeric N":     {"run", "many", "1e-5", "0", "0"},
		"mutation too high": {"run", "1000", "0.5", "0", "0"},
		"missing argument":  {"run", "1000", "1e-5", "0"},
		"bad overflow":      {"run", "1000", "1e-5", "0", "0", "--overflow", "ignore"},
		"zero tstep":        {"run", "1000", "1e-5", "0", "0", "--tstep", "0"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			args = append(args, "--out", filepath.Join(dir, name)+"_", "--artifacts-dir", filepath.Join(dir, "runs"))
			if _, err := executeCommand(t, args...); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestSweepCommand(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	artifacts := filepath.Join(dir, "runs")
	metricsFile := filepath.Join(dir, "valleycross.prom")

	out, err := executeCommand(t,
		"sweep", "200", "0.01", "0.1", "5",
		"--replicates", "3", "--workers", "2",
		"--seed", "1", "--tmax", "300",
		"--out", filepath.Join(dir, "sweep_"),
		"--artifacts-dir", artifacts,
		"--metrics-file", metricsFile,
		"--json",
	)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	var summary struct {
		SweepID  string
		Fixation struct {
			Replicates int `json:"replicates"`
		}
		Runs []struct {
			Seed int64 `json:"seed"`
		}
	}
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode sweep json: %v", err)
	}
	if summary.Fixation.Replicates != 3 || len(summary.Runs) != 3 {
		t.Fatalf("unexpected sweep summary: %+v", summary)
	}
	for i, run := range summary.Runs {
		if run.Seed != int64(1+i) {
			t.Fatalf("replicate %d seed = %d", i, run.Seed)
		}
	}
	if _, err := os.Stat(metricsFile); err != nil {
		t.Fatalf("expected metrics file: %v", err)
	}

	listed, err := executeCommand(t, "runs", "--sweep", summary.SweepID, "--artifacts-dir", artifacts, "--json")
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	var entries []map[string]any
	if err := json.Unmarshal([]byte(listed), &entries); err != nil {
		t.Fatalf("decode runs json: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 sweep runs, got %d", len(entries))
	}
}

func TestShowWithoutRunsFails(t *testing.T) {
	isolateEnv(t)
	if _, err := executeCommand(t, "show", "--latest", "--artifacts-dir", filepath.Join(t.TempDir(), "runs")); err == nil {
		t.Fatal("expected error when no runs are recorded")
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
