package fem

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestHistory_Validate(t *testing.T) {
	good := Rest(3)
	nan := Rest(1)
	nan[0].SetVec(4, math.NaN())

	tests := []struct {
		name string
		h    History
		n    int
		want error
	}{
		{"rest", good, 3, nil},
		{"too short", good[:2], 3, ErrHistoryLength},
		{"too long", good, 1, ErrHistoryLength},
		{"wrong dim", History{mat.NewVecDense(9, nil)}, 1, ErrDimensionMismatch},
		{"nil state", History{nil}, 1, ErrDimensionMismatch},
		{"with NaN", nan, 1, ErrInvalidState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.h.Validate(tt.n)
			if tt.want == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNewHistory(t *testing.T) {
	raw := make([]float64, Dof)
	raw[0] = 1
	h, err := NewHistory(raw, raw)
	if err != nil {
		t.Fatalf("NewHistory: %v", err)
	}
	raw[0] = 99
	if h[0].AtVec(0) != 1 {
		t.Error("NewHistory did not copy its input")
	}

	if _, err := NewHistory([]float64{1, 2}); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestHistory_Clone(t *testing.T) {
	h := Rest(2)
	c := h.Clone()
	c[0].SetVec(0, 5)
	if h[0].AtVec(0) != 0 {
		t.Error("Clone did not create independent copy")
	}
}

func TestIsFinite(t *testing.T) {
	if !IsFinite(0, 1, -2) {
		t.Error("finite values reported as non-finite")
	}
	if IsFinite(1, math.Inf(-1)) {
		t.Error("-Inf reported as finite")
	}
	m := mat.NewDense(2, 2, []float64{1, 2, 3, math.NaN()})
	if MatrixIsFinite(m) {
		t.Error("NaN matrix reported as finite")
	}
}

func TestEvalError(t *testing.T) {
	err := &EvalError{Element: 7, Integrator: "quasi_static", Op: "EvalElmObj", Wrapped: ErrInvalidState}
	want := "element 7 (quasi_static.EvalElmObj): fem: invalid state (NaN or Inf detected)"
	if err.Error() != want {
		t.Errorf("EvalError.Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, ErrInvalidState) {
		t.Error("EvalError does not unwrap")
	}

	single := &EvalError{Element: -1, Integrator: "backward_euler", Op: "EvalElmObj", Wrapped: ErrHistoryLength}
	if got := single.Error(); got != "backward_euler.EvalElmObj: fem: displacement history has wrong length" {
		t.Errorf("EvalError.Error() = %q", got)
	}
}

func TestValidationError_Is(t *testing.T) {
	var err error = &ValidationError{Model: "stvk", GradErr: 1, HessErr: 2}
	if !errors.Is(err, ErrVerification) {
		t.Error("ValidationError should match ErrVerification")
	}
	var ve *ValidationError
	if !errors.As(fmtWrap(err), &ve) || ve.Model != "stvk" {
		t.Error("ValidationError lost through wrapping")
	}
}

func fmtWrap(err error) error {
	return &EvalError{Integrator: "backward_euler", Op: "EvalElmObjDerivJacobi", Wrapped: err}
}
