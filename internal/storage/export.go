package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/fesdsim/internal/sim"
)

type ExportData struct {
	Model     string      `json:"model"`
	Steps     int         `json:"steps"`
	TGrid     []float64   `json:"t_grid"`
	TimeSteps []float64   `json:"time_steps"`
	XSim      [][]float64 `json:"X_sim"`
	ThetaSim  [][]float64 `json:"theta_sim"`
	LambdaSim [][]float64 `json:"lambda_sim"`
	WSim      [][]float64 `json:"w_sim"`
	CPUNLP    [][]float64 `json:"cpu_nlp"`
	Statuses  []string    `json:"statuses"`
	Failed    int         `json:"failed_steps"`
}

func NewExportData(model string, res *sim.Results) ExportData {
	data := ExportData{
		Model:     model,
		Steps:     len(res.Statuses),
		TGrid:     res.TGrid,
		TimeSteps: res.TimeSteps,
		XSim:      make([][]float64, len(res.XSim)),
		ThetaSim:  res.ThetaSim,
		LambdaSim: res.LambdaSim,
		WSim:      res.WSim,
		CPUNLP:    res.CPUNLP,
		Statuses:  make([]string, len(res.Statuses)),
		Failed:    res.Failed,
	}
	for i, x := range res.XSim {
		data.XSim[i] = x
	}
	for i, st := range res.Statuses {
		data.Statuses[i] = st.String()
	}
	return data
}

// ExportJSON writes the full run, including the primal-dual solutions, as
// indented JSON.
func ExportJSON(w io.Writer, model string, res *sim.Results) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(NewExportData(model, res))
}

type RunExport struct {
	Metadata    RunMetadata  `json:"metadata"`
	TGrid       []float64    `json:"t_grid"`
	XSim        [][]float64  `json:"X_sim"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// ExportRun writes a stored run as JSON. Stored runs keep the states and
// the per-level diagnostics only.
func (s *Store) ExportRun(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	states, times, err := s.LoadStates(runID)
	if err != nil {
		return err
	}
	diags, err := s.LoadDiagnostics(runID)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(RunExport{Metadata: *meta, TGrid: times, XSim: states, Diagnostics: diags})
}
