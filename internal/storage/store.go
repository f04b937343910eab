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

	"github.com/san-kum/femdyn/internal/fem"
	"github.com/san-kum/femdyn/internal/integrators"
	"github.com/san-kum/femdyn/internal/sim"
	"gonum.org/v1/gonum/mat"
)

const (
	metadataFile = "metadata.json"
	gradientFile = "gradient.csv"
	hessianFile  = "hessian.csv"
	sweepFile    = "sweep.csv"
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

// RunMetadata describes one stored evaluation, sweep or check.
type RunMetadata struct {
	ID         string             `json:"id"`
	Kind       string             `json:"kind"`
	Timestamp  time.Time          `json:"timestamp"`
	Integrator string             `json:"integrator"`
	Force      string             `json:"force"`
	Damping    string             `json:"damping"`
	Level      string             `json:"level,omitempty"`
	Dt         float64            `json:"dt"`
	Seed       int64              `json:"seed"`
	Debug      bool               `json:"debug"`
	Objective  float64            `json:"objective"`
	GradNorm   float64            `json:"grad_norm"`
	Metrics    map[string]float64 `json:"metrics,omitempty"`
}

// SweepRow is one step of a stored sweep.
type SweepRow struct {
	Step      int
	Amount    float64
	Objective float64
	GradNorm  float64
	Yields    int
}

func (s *Store) newRun(meta *RunMetadata, kind string) (string, error) {
	meta.Kind = kind
	meta.Timestamp = time.Now()
	meta.ID = fmt.Sprintf("%s_%s_%d", kind, meta.Integrator, meta.Timestamp.UnixNano())
	dir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, writeJSON(filepath.Join(dir, metadataFile), meta)
}

// SaveEval stores a single element contribution. Gradient and Hessian
// files are written only when present.
func (s *Store) SaveEval(meta RunMetadata, c integrators.Contribution) (string, error) {
	meta.Objective = c.Objective
	if c.Gradient != nil {
		meta.GradNorm = mat.Norm(c.Gradient, 2)
	}
	dir, err := s.newRun(&meta, "eval")
	if err != nil {
		return "", err
	}

	if c.Gradient != nil {
		rows := [][]string{{"dof", "value"}}
		for i := 0; i < c.Gradient.Len(); i++ {
			rows = append(rows, []string{strconv.Itoa(i), formatFloat(c.Gradient.AtVec(i))})
		}
		if err := writeCSV(filepath.Join(dir, gradientFile), rows); err != nil {
			return "", err
		}
	}

	if c.Hessian != nil {
		n := c.Hessian.SymmetricDim()
		rows := make([][]string, 0, n)
		for i := 0; i < n; i++ {
			row := make([]string, n)
			for j := range row {
				row[j] = formatFloat(c.Hessian.At(i, j))
			}
			rows = append(rows, row)
		}
		if err := writeCSV(filepath.Join(dir, hessianFile), rows); err != nil {
			return "", err
		}
	}

	return meta.ID, nil
}

// SaveSweep stores the per-step totals of a sweep.
func (s *Store) SaveSweep(meta RunMetadata, amounts []float64, trace *sim.Trace) (string, error) {
	if len(amounts) < trace.StepsTaken {
		return "", fmt.Errorf("%w: %d amounts for %d steps", fem.ErrDimensionMismatch, len(amounts), trace.StepsTaken)
	}
	if trace.StepsTaken > 0 {
		last := trace.StepsTaken - 1
		meta.Objective = trace.Objectives[last]
		meta.GradNorm = trace.GradNorms[last]
	}
	dir, err := s.newRun(&meta, "sweep")
	if err != nil {
		return "", err
	}

	rows := [][]string{{"step", "amount", "objective", "grad_norm", "yields"}}
	for i := 0; i < trace.StepsTaken; i++ {
		rows = append(rows, []string{
			strconv.Itoa(i),
			formatFloat(amounts[i]),
			formatFloat(trace.Objectives[i]),
			formatFloat(trace.GradNorms[i]),
			strconv.Itoa(trace.Yields[i]),
		})
	}
	if err := writeCSV(filepath.Join(dir, sweepFile), rows); err != nil {
		return "", err
	}
	return meta.ID, nil
}

// SaveCheck stores a verifier outcome as metadata only.
func (s *Store) SaveCheck(meta RunMetadata, gradErr, hessErr float64, passed bool) (string, error) {
	if meta.Metrics == nil {
		meta.Metrics = make(map[string]float64)
	}
	// JSON cannot carry NaN or Inf; those errors are left out.
	if fem.IsFinite(gradErr) {
		meta.Metrics["grad_err"] = gradErr
	}
	if fem.IsFinite(hessErr) {
		meta.Metrics["hess_err"] = hessErr
	}
	meta.Metrics["passed"] = 0
	if passed {
		meta.Metrics["passed"] = 1
	}
	if _, err := s.newRun(&meta, "check"); err != nil {
		return "", err
	}
	return meta.ID, nil
}

// List returns all stored runs, newest first.
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

func (s *Store) LoadGradient(runID string) ([]float64, error) {
	records, err := readCSV(filepath.Join(s.baseDir, runID, gradientFile))
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []float64{}, nil
	}

	grad := make([]float64, 0, len(records)-1)
	for i, record := range records[1:] {
		if len(record) != 2 {
			return nil, fmt.Errorf("%s line %d: want 2 fields, got %d", gradientFile, i+2, len(record))
		}
		v, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", gradientFile, i+2, err)
		}
		grad = append(grad, v)
	}
	return grad, nil
}

func (s *Store) LoadHessian(runID string) (*mat.SymDense, error) {
	records, err := readCSV(filepath.Join(s.baseDir, runID, hessianFile))
	if err != nil {
		return nil, err
	}
	n := len(records)
	h := mat.NewSymDense(n, nil)
	for i, record := range records {
		if len(record) != n {
			return nil, fmt.Errorf("%w: %s row %d has %d fields, want %d", fem.ErrDimensionMismatch, hessianFile, i, len(record), n)
		}
		for j := i; j < n; j++ {
			v, err := strconv.ParseFloat(record[j], 64)
			if err != nil {
				return nil, fmt.Errorf("%s row %d: %w", hessianFile, i, err)
			}
			h.SetSym(i, j, v)
		}
	}
	return h, nil
}

func (s *Store) LoadSweep(runID string) ([]SweepRow, error) {
	records, err := readCSV(filepath.Join(s.baseDir, runID, sweepFile))
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []SweepRow{}, nil
	}

	rows := make([]SweepRow, 0, len(records)-1)
	for i, record := range records[1:] {
		if len(record) != 5 {
			return nil, fmt.Errorf("%s line %d: want 5 fields, got %d", sweepFile, i+2, len(record))
		}
		var row SweepRow
		var errs [5]error
		row.Step, errs[0] = strconv.Atoi(record[0])
		row.Amount, errs[1] = strconv.ParseFloat(record[1], 64)
		row.Objective, errs[2] = strconv.ParseFloat(record[2], 64)
		row.GradNorm, errs[3] = strconv.ParseFloat(record[3], 64)
		row.Yields, errs[4] = strconv.Atoi(record[4])
		for _, err := range errs {
			if err != nil {
				return nil, fmt.Errorf("%s line %d: %w", sweepFile, i+2, err)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
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

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return f.Close()
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	return r.ReadAll()
}
