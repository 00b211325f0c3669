package gofusion

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Identity returns an identity matrix of the provided size.
func Identity(n int) *mat.SymDense {
	id := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		id.SetSym(i, i, 1)
	}
	return id
}

// Diagonal returns a symmetric matrix with the provided values on its diagonal.
func Diagonal(vals ...float64) *mat.SymDense {
	d := mat.NewSymDense(len(vals), nil)
	for i, v := range vals {
		d.SetSym(i, i, v)
	}
	return d
}

// Symmetrize returns (m + mᵀ)/2 as a SymDense. Products like (I-KH)P are only
// symmetric up to rounding, and the filter stores its covariance as a SymDense.
func Symmetrize(m mat.Matrix) (*mat.SymDense, error) {
	r, c := m.Dims()
	if r != c {
		return nil, errors.New("matrix must be square")
	}
	s := mat.NewSymDense(r, nil)
	for i := 0; i < r; i++ {
		for j := i; j < c; j++ {
			s.SetSym(i, j, 0.5*(m.At(i, j)+m.At(j, i)))
		}
	}
	return s, nil
}

// NormalizeAngle wraps an angle into (-π, π] with a two-argument arc tangent.
func NormalizeAngle(θ float64) float64 {
	wrapped := math.Atan2(math.Sin(θ), math.Cos(θ))
	if wrapped == -math.Pi {
		return math.Pi
	}
	return wrapped
}

// IsSymmetric returns whether m is square and symmetric within tol.
func IsSymmetric(m mat.Matrix, tol float64) bool {
	r, c := m.Dims()
	if r != c {
		return false
	}
	for i := 0; i < r; i++ {
		for j := i + 1; j < c; j++ {
			if math.Abs(m.At(i, j)-m.At(j, i)) > tol {
				return false
			}
		}
	}
	return true
}

// MinEigenvalue returns the smallest eigenvalue of s.
func MinEigenvalue(s mat.Symmetric) (float64, bool) {
	var eig mat.EigenSym
	if ok := eig.Factorize(s, false); !ok {
		return math.NaN(), false
	}
	vals := eig.Values(nil)
	lowest := math.Inf(1)
	for _, v := range vals {
		lowest = math.Min(lowest, v)
	}
	return lowest, true
}

// IsPositiveSemiDefinite returns whether all eigenvalues of s are at least -tol.
func IsPositiveSemiDefinite(s mat.Symmetric, tol float64) bool {
	lowest, ok := MinEigenvalue(s)
	return ok && lowest >= -tol
}

// allFinite returns whether m holds neither NaN nor Inf.
func allFinite(m mat.Matrix) bool {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := m.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

// repairCovariance lifts every eigenvalue of p below floor up to floor, in place.
// It returns whether p was modified.
func repairCovariance(p *mat.SymDense, floor float64) (bool, error) {
	var eig mat.EigenSym
	if ok := eig.Factorize(p, true); !ok {
		return false, errors.New("eigen decomposition of the covariance failed")
	}
	vals := eig.Values(nil)
	repaired := false
	for i, v := range vals {
		if v < floor {
			vals[i] = floor
			repaired = true
		}
	}
	if !repaired {
		return false, nil
	}
	var vecs mat.Dense
	eig.VectorsTo(&vecs)
	n := len(vals)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			var v float64
			for k := 0; k < n; k++ {
				v += vecs.At(i, k) * vals[k] * vecs.At(j, k)
			}
			p.SetSym(i, j, v)
		}
	}
	return true, nil
}
