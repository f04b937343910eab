package material

import (
	"fmt"
	"sort"

	"github.com/san-kum/femdyn/internal/element"
	"github.com/san-kum/femdyn/internal/fem"
	"gonum.org/v1/gonum/mat"
)

// Kind tags a model variant.
type Kind uint8

const (
	KindNone Kind = iota
	KindLinear
	KindStVK
	KindNeoHookean
	KindFiber
	KindPlastic
	KindDirichlet
)

var kindNames = map[Kind]string{
	KindNone:       "none",
	KindLinear:     "linear",
	KindStVK:       "stvk",
	KindNeoHookean: "neohookean",
	KindFiber:      "fiber",
	KindPlastic:    "plastic",
	KindDirichlet:  "dirichlet",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// IsPlastic reports whether the model reads the element's plastic state.
func (k Kind) IsPlastic() bool { return k == KindPlastic }

// IsDamping reports whether the model is a velocity-gradient potential.
func (k Kind) IsDamping() bool { return k == KindDirichlet || k == KindNone }

// ParseKind maps a configuration name to its tag.
func ParseKind(name string) (Kind, error) {
	for k, s := range kindNames {
		if s == name {
			return k, nil
		}
	}
	return KindNone, fmt.Errorf("%w: %q", fem.ErrUnknownKind, name)
}

// Names lists the registered model names.
func Names() []string {
	names := make([]string, 0, len(kindNames))
	for _, s := range kindNames {
		names = append(names, s)
	}
	sort.Strings(names)
	return names
}

// Model is an energy density of a 3x3 tensor argument: the deformation
// gradient for force models, the velocity gradient for damping models.
type Model interface {
	Kind() Kind

	ComputePsi(attrs *element.Attributes, F mat.Matrix) float64
	ComputePsiDeriv(attrs *element.Attributes, F mat.Matrix) (float64, *mat.VecDense)

	// ComputePsiDerivHessian returns the energy, its 9-gradient and 9x9
	// Hessian. With spd set the Hessian is projected onto the nearest
	// positive semi-definite matrix.
	ComputePsiDerivHessian(attrs *element.Attributes, F mat.Matrix, spd bool) (float64, *mat.VecDense, *mat.SymDense, error)
}

// New returns the model for a tag.
func New(k Kind) (Model, error) {
	switch k {
	case KindNone:
		return NoDamping{}, nil
	case KindLinear:
		return Linear{}, nil
	case KindStVK:
		return StVK{}, nil
	case KindNeoHookean:
		return NeoHookean{}, nil
	case KindFiber:
		return Fiber{}, nil
	case KindPlastic:
		return Plastic{}, nil
	case KindDirichlet:
		return Dirichlet{}, nil
	}
	return nil, fmt.Errorf("%w: %v", fem.ErrUnknownKind, k)
}

// finish applies the optional SPD projection to a model Hessian.
func finish(psi float64, grad *mat.VecDense, hess *mat.SymDense, spd bool) (float64, *mat.VecDense, *mat.SymDense, error) {
	if !spd {
		return psi, grad, hess, nil
	}
	proj, err := ProjectSPD(hess)
	if err != nil {
		return 0, nil, nil, err
	}
	return psi, grad, proj, nil
}
