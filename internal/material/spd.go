package material

import (
	"github.com/san-kum/femdyn/internal/fem"
	"gonum.org/v1/gonum/mat"
)

// ProjectSPD returns the positive semi-definite matrix nearest to h in
// the Frobenius norm by clamping negative eigenvalues to zero.
func ProjectSPD(h mat.Symmetric) (*mat.SymDense, error) {
	var es mat.EigenSym
	if ok := es.Factorize(h, true); !ok {
		return nil, fem.ErrEigenDecomposition
	}
	vals := es.Values(nil)
	n := len(vals)

	clamped := false
	for i, v := range vals {
		if v < 0 {
			vals[i] = 0
			clamped = true
		}
	}
	if !clamped {
		out := mat.NewSymDense(n, nil)
		out.CopySym(h)
		return out, nil
	}

	var vecs mat.Dense
	es.VectorsTo(&vecs)

	out := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			var sum float64
			for k, lam := range vals {
				if lam == 0 {
					continue
				}
				sum += lam * vecs.At(i, k) * vecs.At(j, k)
			}
			out.SetSym(i, j, sum)
		}
	}
	return out, nil
}

// MinEigenvalue returns the smallest eigenvalue of h.
func MinEigenvalue(h mat.Symmetric) (float64, error) {
	var es mat.EigenSym
	if ok := es.Factorize(h, false); !ok {
		return 0, fem.ErrEigenDecomposition
	}
	vals := es.Values(nil)
	lo := vals[0]
	for _, v := range vals[1:] {
		if v < lo {
			lo = v
		}
	}
	return lo, nil
}
