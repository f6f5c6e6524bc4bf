package storage

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/san-kum/fesdsim/internal/homotopy"
	"github.com/san-kum/fesdsim/internal/sim"
)

func sampleResults() *sim.Results {
	log0 := &homotopy.Log{}
	log0.Append(homotopy.Level{Sigma: 1, CPUTime: 2 * time.Millisecond, NLPIter: 4, CompRes: 0.5})
	log0.Append(homotopy.Level{Sigma: 0.1, CPUTime: time.Millisecond, NLPIter: 3, CompRes: 1e-3})
	log1 := &homotopy.Log{}
	log1.Append(homotopy.Level{Sigma: 1, CPUTime: time.Millisecond, NLPIter: 2, CompRes: 1e-10})

	return &sim.Results{
		XSim:      []sim.State{{0.35, 1}, {0.15, 0.5}, {0.1, 1.0 / 3}},
		TimeSteps: []float64{0.05, 0.05, 0.05, 0.05},
		TGrid:     []float64{0, 0.05, 0.1, 0.15, 0.2},
		CPUNLP:    [][]float64{{0.002, 0.001}, {0.001, 0}},
		ThetaSim:  [][]float64{{1, 0}, {0.5, 0.5}},
		LambdaSim: [][]float64{{0, 0.2}, {0, 0}},
		WSim:      [][]float64{{0.15, 1, 0}, {0.1, 0.5, 0.5}},
		Statuses:  []homotopy.Status{homotopy.SigmaFloor, homotopy.Converged},
		NLPIter:   []int{7, 2},
		Logs:      []*homotopy.Log{log0, log1},
		Failed:    1,
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	s := New(filepath.Join(dir, "runs"))
	if err := s.Init(); err != nil {
		t.Fatal(err)
	}

	res := sampleResults()
	id, err := s.Save(RunMetadata{Model: "relay", Steps: 2, Horizon: 0.2, FiniteElements: 2}, res)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	meta, err := s.Load(id)
	if err != nil {
		t.Fatal(err)
	}
	if meta.ID != id || meta.Model != "relay" {
		t.Errorf("unexpected metadata %+v", meta)
	}
	if meta.Failed != 1 || meta.TotalNLPIter != 9 {
		t.Errorf("expected failed=1 iter=9, got %d %d", meta.Failed, meta.TotalNLPIter)
	}
	if math.Abs(meta.TotalCPUSeconds-0.004) > 1e-12 {
		t.Errorf("total cpu = %v", meta.TotalCPUSeconds)
	}
	if len(meta.FinalState) != 2 || meta.FinalState[0] != 0.1 {
		t.Errorf("final state = %v", meta.FinalState)
	}

	states, times, err := s.LoadStates(id)
	if err != nil {
		t.Fatal(err)
	}
	if len(states) != 3 || len(times) != 3 {
		t.Fatalf("expected 3 rows, got %d %d", len(states), len(times))
	}
	if times[2] != 0.1 || states[2][1] != 1.0/3 {
		t.Errorf("states not restored exactly: t=%v x=%v", times[2], states[2])
	}

	diags, err := s.LoadDiagnostics(id)
	if err != nil {
		t.Fatal(err)
	}
	if len(diags) != 3 {
		t.Fatalf("expected 3 diagnostic rows, got %d", len(diags))
	}
	if diags[1].Step != 0 || diags[1].Level != 1 || diags[1].Sigma != 0.1 || diags[1].NLPIter != 3 {
		t.Errorf("unexpected diagnostic %+v", diags[1])
	}
	if diags[2].Step != 1 || diags[2].CompRes != 1e-10 {
		t.Errorf("unexpected diagnostic %+v", diags[2])
	}
}

func TestListNewestFirst(t *testing.T) {
	s := New(t.TempDir())
	res := sampleResults()

	first, err := s.Save(RunMetadata{Model: "a"}, res)
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(2 * time.Millisecond)
	second, err := s.Save(RunMetadata{Model: "b"}, res)
	if err != nil {
		t.Fatal(err)
	}

	runs, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != second || runs[1].ID != first {
		t.Errorf("unexpected order %s, %s", runs[0].ID, runs[1].ID)
	}
}

func TestListMissingDir(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "nope"))
	runs, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 0 {
		t.Errorf("expected no runs, got %d", len(runs))
	}
}

func TestLoadStatesBadValue(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	if err := os.MkdirAll(filepath.Join(dir, "broken"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "broken", "states.csv"), []byte("time,x0\n0,abc\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.LoadStates("broken"); err == nil {
		t.Error("expected parse error")
	}
}

func TestExportJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportJSON(&buf, "relay", sampleResults()); err != nil {
		t.Fatal(err)
	}

	var data ExportData
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if data.Model != "relay" || data.Steps != 2 || data.Failed != 1 {
		t.Errorf("unexpected header %+v", data)
	}
	if len(data.WSim) != 2 || len(data.XSim) != 3 {
		t.Errorf("unexpected sizes w=%d x=%d", len(data.WSim), len(data.XSim))
	}
	if data.Statuses[0] != homotopy.SigmaFloor.String() {
		t.Errorf("status = %q", data.Statuses[0])
	}
}

func TestExportRun(t *testing.T) {
	s := New(t.TempDir())
	id, err := s.Save(RunMetadata{Model: "relay"}, sampleResults())
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := s.ExportRun(&buf, id); err != nil {
		t.Fatal(err)
	}
	var data RunExport
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if data.Metadata.ID != id || len(data.XSim) != 3 || len(data.Diagnostics) != 3 {
		t.Errorf("unexpected export %+v", data)
	}
	if err := s.ExportRun(&buf, "missing"); err == nil {
		t.Error("expected error for a missing run")
	}
}
