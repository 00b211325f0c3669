package gofusion

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestIdentity(t *testing.T) {
	n := 3
	i33 := Identity(n)
	if r, c := i33.Dims(); r != n || r != c {
		t.Fatalf("i33 has dimensions (%dx%d)", r, c)
	}
	for i := 0; i < n; i++ {
		if i33.At(i, i) != 1 {
			t.Fatalf("i33(%d,%d) != 1", i, i)
		}
		for j := 0; j < n; j++ {
			if i != j && i33.At(i, j) != 0 {
				t.Fatalf("i33(%d,%d) != 0", i, j)
			}
		}
	}
}

func TestDiagonal(t *testing.T) {
	d := Diagonal(1, 1, 1, 100, 100)
	r, c := d.Dims()
	require.Equal(t, 5, r)
	require.Equal(t, 5, c)
	assert.Equal(t, 100.0, d.At(4, 4))
	assert.Equal(t, 0.0, d.At(0, 4))
}

func TestSymmetrize(t *testing.T) {
	m := mat.NewDense(2, 2, []float64{1, 2, 4, 3})
	s, err := Symmetrize(m)
	require.NoError(t, err)
	assert.Equal(t, 3.0, s.At(0, 1))
	assert.Equal(t, 3.0, s.At(1, 0))
	assert.True(t, IsSymmetric(s, 0))

	_, err = Symmetrize(mat.NewDense(2, 3, nil))
	assert.Error(t, err)
}

func TestNormalizeAngle(t *testing.T) {
	for _, θ := range []float64{0, 0.5, -0.5, 1, -3, 3, math.Pi, math.Pi - 1e-9, -math.Pi + 1e-9} {
		assert.InDelta(t, θ, NormalizeAngle(θ), 1e-12, "normalized angle %f moved", θ)
		once := NormalizeAngle(θ + 10*math.Pi)
		assert.InDelta(t, once, NormalizeAngle(once), 1e-12, "normalization of %f not idempotent", θ)
	}
	ε := 1e-3
	assert.InDelta(t, -math.Pi+ε, NormalizeAngle(math.Pi+ε), 1e-12)
	assert.InDelta(t, math.Pi-ε, NormalizeAngle(-math.Pi-ε), 1e-12)
	assert.Equal(t, math.Pi, NormalizeAngle(-math.Pi))
	assert.InDelta(t, 0.25, NormalizeAngle(0.25+8*math.Pi), 1e-9)
	for θ := -20.0; θ < 20; θ += 0.37 {
		n := NormalizeAngle(θ)
		if n <= -math.Pi || n > math.Pi {
			t.Fatalf("NormalizeAngle(%f) = %f out of (-π, π]", θ, n)
		}
	}
}

func TestIsPositiveSemiDefinite(t *testing.T) {
	assert.True(t, IsPositiveSemiDefinite(Identity(3), 0))
	indef := mat.NewSymDense(2, []float64{1, 2, 2, 1})
	assert.False(t, IsPositiveSemiDefinite(indef, 1e-9))
	lowest, ok := MinEigenvalue(indef)
	require.True(t, ok)
	assert.InDelta(t, -1, lowest, 1e-12)
}

func TestRepairCovariance(t *testing.T) {
	p := mat.NewSymDense(2, []float64{1, 2, 2, 1})
	repaired, err := repairCovariance(p, 1e-9)
	require.NoError(t, err)
	require.True(t, repaired)
	assert.True(t, IsPositiveSemiDefinite(p, 0))
	assert.True(t, IsSymmetric(p, 1e-12))
	// The positive eigenpair (3, [1 1]/√2) survives.
	assert.InDelta(t, 1.5, p.At(0, 0), 1e-8)
	assert.InDelta(t, 1.5, p.At(0, 1), 1e-8)

	healthy := Diagonal(1, 2, 3)
	repaired, err = repairCovariance(healthy, 1e-9)
	require.NoError(t, err)
	assert.False(t, repaired)
	assert.True(t, mat.Equal(healthy, Diagonal(1, 2, 3)))
}

func TestAllFinite(t *testing.T) {
	assert.True(t, allFinite(Identity(2)))
	assert.False(t, allFinite(mat.NewDense(1, 2, []float64{1, math.NaN()})))
	assert.False(t, allFinite(mat.NewVecDense(2, []float64{math.Inf(-1), 0})))
}
