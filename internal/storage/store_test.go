package storage

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/femdyn/internal/fem"
	"github.com/san-kum/femdyn/internal/integrators"
	"github.com/san-kum/femdyn/internal/sim"
	"gonum.org/v1/gonum/mat"
)

func testContribution() integrators.Contribution {
	g := mat.NewVecDense(fem.Dof, nil)
	h := mat.NewSymDense(fem.Dof, nil)
	for i := 0; i < fem.Dof; i++ {
		g.SetVec(i, float64(i)*1e-7-0.5)
		for j := i; j < fem.Dof; j++ {
			h.SetSym(i, j, 1/float64(1+i+j))
		}
	}
	return integrators.Contribution{Objective: 2.5, Gradient: g, Hessian: h}
}

func TestSaveEvalRoundTrip(t *testing.T) {
	store := New(t.TempDir())
	if err := store.Init(); err != nil {
		t.Fatal(err)
	}

	c := testContribution()
	id, err := store.SaveEval(RunMetadata{Integrator: "backward_euler", Force: "stvk", Damping: "dirichlet", Level: "hessian", Dt: 0.01}, c)
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	meta, err := store.Load(id)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if meta.Kind != "eval" || meta.Force != "stvk" || meta.Objective != 2.5 {
		t.Errorf("unexpected metadata: %+v", meta)
	}
	if math.Abs(meta.GradNorm-mat.Norm(c.Gradient, 2)) > 1e-12 {
		t.Errorf("grad norm = %g", meta.GradNorm)
	}

	grad, err := store.LoadGradient(id)
	if err != nil {
		t.Fatal(err)
	}
	if !mat.Equal(mat.NewVecDense(len(grad), grad), c.Gradient) {
		t.Errorf("gradient round trip: %v", grad)
	}

	hess, err := store.LoadHessian(id)
	if err != nil {
		t.Fatal(err)
	}
	if !mat.Equal(hess, c.Hessian) {
		t.Error("hessian round trip mismatch")
	}
}

func TestSaveEvalObjectiveOnly(t *testing.T) {
	store := New(t.TempDir())
	id, err := store.SaveEval(RunMetadata{Integrator: "quasi_static"}, integrators.Contribution{Objective: -1})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.LoadGradient(id); !os.IsNotExist(err) {
		t.Errorf("expected missing gradient file, got %v", err)
	}
	if _, err := store.LoadHessian(id); !os.IsNotExist(err) {
		t.Errorf("expected missing hessian file, got %v", err)
	}
}

func TestSaveSweep(t *testing.T) {
	store := New(t.TempDir())
	trace := &sim.Trace{
		Objectives: []float64{1, 4, 9},
		GradNorms:  []float64{2, 4, 6},
		Yields:     []int{0, 1, 1},
		StepsTaken: 3,
	}
	amounts := []float64{0.1, 0.2, 0.3}

	id, err := store.SaveSweep(RunMetadata{Integrator: "quasi_static", Force: "plastic"}, amounts, trace)
	if err != nil {
		t.Fatal(err)
	}
	meta, err := store.Load(id)
	if err != nil {
		t.Fatal(err)
	}
	if meta.Kind != "sweep" || meta.Objective != 9 || meta.GradNorm != 6 {
		t.Errorf("unexpected metadata: %+v", meta)
	}

	rows, err := store.LoadSweep(id)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	want := SweepRow{Step: 2, Amount: 0.3, Objective: 9, GradNorm: 6, Yields: 1}
	if rows[2] != want {
		t.Errorf("row 2 = %+v, want %+v", rows[2], want)
	}

	if _, err := store.SaveSweep(RunMetadata{}, amounts[:1], trace); err == nil {
		t.Error("expected error for short amounts")
	}
}

func TestSaveCheck(t *testing.T) {
	store := New(t.TempDir())
	id, err := store.SaveCheck(RunMetadata{Integrator: "backward_euler", Force: "neohookean"}, 1e-7, math.NaN(), false)
	if err != nil {
		t.Fatal(err)
	}
	meta, err := store.Load(id)
	if err != nil {
		t.Fatal(err)
	}
	if meta.Metrics["grad_err"] != 1e-7 || meta.Metrics["passed"] != 0 {
		t.Errorf("metrics = %v", meta.Metrics)
	}
	if _, ok := meta.Metrics["hess_err"]; ok {
		t.Error("non-finite error was stored")
	}
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)

	runs, err := store.List()
	if err != nil || len(runs) != 0 {
		t.Fatalf("empty store: %v, %v", runs, err)
	}

	first, _ := store.SaveEval(RunMetadata{Integrator: "backward_euler"}, integrators.Contribution{Objective: 1})
	second, _ := store.SaveEval(RunMetadata{Integrator: "quasi_static"}, integrators.Contribution{Objective: 2})
	if err := os.MkdirAll(filepath.Join(dir, "junk"), 0755); err != nil {
		t.Fatal(err)
	}

	runs, err = store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].ID != second || runs[1].ID != first {
		t.Errorf("runs not newest first: %s, %s", runs[0].ID, runs[1].ID)
	}
}

func TestListMissingDir(t *testing.T) {
	runs, err := New(filepath.Join(t.TempDir(), "absent")).List()
	if err != nil || len(runs) != 0 {
		t.Errorf("List() = %v, %v", runs, err)
	}
}
