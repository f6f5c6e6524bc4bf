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

	"github.com/san-kum/fesdsim/internal/sim"
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

type RunMetadata struct {
	ID              string    `json:"id"`
	Model           string    `json:"model"`
	Timestamp       time.Time `json:"timestamp"`
	Steps           int       `json:"steps"`
	Horizon         float64   `json:"horizon"`
	FiniteElements  int       `json:"n_finite_elements"`
	UpdateRule      string    `json:"update_rule"`
	CompTol         float64   `json:"comp_tol"`
	Initialization  string    `json:"initialization"`
	CrossComp       bool      `json:"cross_complementarity"`
	Failed          int       `json:"failed_steps"`
	TotalNLPIter    int       `json:"total_nlp_iter"`
	TotalCPUSeconds float64   `json:"total_cpu_seconds"`
	FinalState      []float64 `json:"final_state"`
}

// Diagnostic is one homotopy level of one simulation step.
type Diagnostic struct {
	Step    int     `json:"step"`
	Level   int     `json:"level"`
	Sigma   float64 `json:"sigma"`
	CompRes float64 `json:"comp_res"`
	CPU     float64 `json:"cpu"`
	NLPIter int     `json:"iter"`
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 17, 64)
}

// Save writes metadata.json, states.csv and diagnostics.csv into a new run
// directory. ID, Timestamp and the run totals of meta are filled in here.
func (s *Store) Save(meta RunMetadata, res *sim.Results) (string, error) {
	now := time.Now()
	runID := fmt.Sprintf("%s_%d", meta.Model, now.UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta.ID = runID
	meta.Timestamp = now
	meta.Failed = res.Failed
	meta.TotalNLPIter = 0
	for _, n := range res.NLPIter {
		meta.TotalNLPIter += n
	}
	meta.TotalCPUSeconds = 0
	for _, row := range res.CPUNLP {
		for _, v := range row {
			meta.TotalCPUSeconds += v
		}
	}
	if len(res.XSim) > 0 {
		meta.FinalState = res.XSim[len(res.XSim)-1]
	}

	if err := writeJSON(filepath.Join(runDir, "metadata.json"), meta); err != nil {
		return "", err
	}
	if err := writeStates(filepath.Join(runDir, "states.csv"), res); err != nil {
		return "", err
	}
	if err := writeDiagnostics(filepath.Join(runDir, "diagnostics.csv"), res); err != nil {
		return "", err
	}
	return runID, nil
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

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return w.Error()
}

func writeStates(path string, res *sim.Results) error {
	header := []string{"time"}
	if len(res.XSim) > 0 {
		for i := range res.XSim[0] {
			header = append(header, fmt.Sprintf("x%d", i))
		}
	}

	rows := make([][]string, 0, len(res.XSim))
	for i, x := range res.XSim {
		t := 0.0
		if i < len(res.TGrid) {
			t = res.TGrid[i]
		}
		row := []string{formatFloat(t)}
		for _, v := range x {
			row = append(row, formatFloat(v))
		}
		rows = append(rows, row)
	}
	return writeCSV(path, header, rows)
}

func writeDiagnostics(path string, res *sim.Results) error {
	header := []string{"step", "level", "sigma", "comp_res", "cpu", "iter"}
	var rows [][]string
	for step, log := range res.Logs {
		if log == nil {
			continue
		}
		for lv := 0; lv < log.Levels(); lv++ {
			rows = append(rows, []string{
				strconv.Itoa(step),
				strconv.Itoa(lv),
				formatFloat(log.Sigma[lv]),
				formatFloat(log.CompRes[lv]),
				formatFloat(log.CPUTime[lv].Seconds()),
				strconv.Itoa(log.NLPIter[lv]),
			})
		}
	}
	return writeCSV(path, header, rows)
}

// List returns the stored runs, newest first.
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

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, nil
	}
	return records[1:], nil
}

func (s *Store) LoadStates(runID string) ([][]float64, []float64, error) {
	records, err := readCSV(filepath.Join(s.baseDir, runID, "states.csv"))
	if err != nil {
		return nil, nil, err
	}

	times := make([]float64, 0, len(records))
	states := make([][]float64, 0, len(records))
	for line, record := range records {
		if len(record) == 0 {
			continue
		}
		vals := make([]float64, len(record))
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("states.csv line %d: %w", line+2, err)
			}
			vals[j] = v
		}
		times = append(times, vals[0])
		states = append(states, vals[1:])
	}
	return states, times, nil
}

func (s *Store) LoadDiagnostics(runID string) ([]Diagnostic, error) {
	records, err := readCSV(filepath.Join(s.baseDir, runID, "diagnostics.csv"))
	if err != nil {
		return nil, err
	}

	diags := make([]Diagnostic, 0, len(records))
	for line, r := range records {
		if len(r) != 6 {
			return nil, fmt.Errorf("diagnostics.csv line %d: expected 6 fields, got %d", line+2, len(r))
		}
		var d Diagnostic
		var errs [6]error
		d.Step, errs[0] = strconv.Atoi(r[0])
		d.Level, errs[1] = strconv.Atoi(r[1])
		d.Sigma, errs[2] = strconv.ParseFloat(r[2], 64)
		d.CompRes, errs[3] = strconv.ParseFloat(r[3], 64)
		d.CPU, errs[4] = strconv.ParseFloat(r[4], 64)
		d.NLPIter, errs[5] = strconv.Atoi(r[5])
		for _, err := range errs {
			if err != nil {
				return nil, fmt.Errorf("diagnostics.csv line %d: %w", line+2, err)
			}
		}
		diags = append(diags, d)
	}
	return diags, nil
}
