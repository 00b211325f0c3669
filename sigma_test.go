package gofusion

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func TestSigmaWeights(t *testing.T) {
	for nAug := 1; nAug <= 12; nAug++ {
		w := sigmaWeights(nAug)
		require.Equal(t, 2*nAug+1, w.Len())
		assert.InDelta(t, 1, floats.Sum(w.RawVector().Data), 1e-12, "n_aug=%d", nAug)
	}
	w := sigmaWeights(augDim)
	assert.InDelta(t, -4.0/3, w.AtVec(0), 1e-15)
	assert.InDelta(t, 1.0/6, w.AtVec(numSigma-1), 1e-15)
}

func TestAugment(t *testing.T) {
	x := mat.NewVecDense(stateDim, []float64{1, 2, 3, 4, 5})
	xAug, pAug := augment(x, Diagonal(1, 1, 1, 100, 100), 0.16, 0.4225)
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 0, 0}, xAug.RawVector().Data)
	assert.Equal(t, 100.0, pAug.At(idxYawRate, idxYawRate))
	assert.Equal(t, 0.16, pAug.At(idxNuA, idxNuA))
	assert.Equal(t, 0.4225, pAug.At(idxNuYawdd, idxNuYawdd))
	assert.Equal(t, 0.0, pAug.At(idxPX, idxNuA))
}

func TestSigmaPointsRecoverMoments(t *testing.T) {
	x := mat.NewVecDense(stateDim, []float64{1, 2, 3, 0.5, 0.1})
	p := Diagonal(0.5, 0.4, 0.3, 0.2, 0.1)
	p.SetSym(0, 1, 0.1)
	xAug, pAug := augment(x, p, 0.16, 0.4225)
	l, jitter, err := choleskyWithJitter(pAug, 1e-9, 3)
	require.NoError(t, err)
	assert.Equal(t, 0.0, jitter)

	pts := sigmaPoints(xAug, l)
	r, c := pts.Dims()
	require.Equal(t, augDim, r)
	require.Equal(t, numSigma, c)
	assert.True(t, mat.Equal(pts.ColView(0), xAug))

	w := sigmaWeights(augDim)
	var mean mat.VecDense
	mean.MulVec(pts, w)
	assert.True(t, mat.EqualApprox(&mean, xAug, 1e-12))

	cov := mat.NewSymDense(augDim, nil)
	diff := mat.NewVecDense(augDim, nil)
	for i := 0; i < numSigma; i++ {
		diff.SubVec(pts.ColView(i), &mean)
		cov.SymRankOne(cov, w.AtVec(i), diff)
	}
	assert.True(t, mat.EqualApprox(cov, pAug, 1e-12))
}

func TestCholeskyWithJitter(t *testing.T) {
	// Positive semi-definite but singular, only the jitter lets it factorize.
	singular := mat.NewSymDense(2, []float64{1, 1, 1, 1})
	l, jitter, err := choleskyWithJitter(singular, 1e-9, 4)
	require.NoError(t, err)
	assert.Greater(t, jitter, 0.0)
	var llt mat.Dense
	llt.Mul(l, l.T())
	assert.True(t, mat.EqualApprox(&llt, singular, 1e-6))

	indefinite := mat.NewSymDense(2, []float64{1, 0, 0, -1})
	_, _, err = choleskyWithJitter(indefinite, 1e-9, 3)
	assert.True(t, errors.Is(err, ErrNumericalFailure))

	_, _, err = choleskyWithJitter(singular, 0, 5)
	assert.True(t, errors.Is(err, ErrNumericalFailure))
}

func TestCTRVStraightLine(t *testing.T) {
	got := ctrvPropagate([augDim]float64{0, 0, 10, 0, 0, 0, 0}, 1.0, 1e-3)
	assert.Equal(t, [stateDim]float64{10, 0, 10, 0, 0}, got)

	// Heading along y.
	got = ctrvPropagate([augDim]float64{1, 1, 2, math.Pi / 2, 0, 0, 0}, 0.5, 1e-3)
	assert.InDelta(t, 1, got[idxPX], 1e-12)
	assert.InDelta(t, 2, got[idxPY], 1e-12)

	// Yaw rates under the threshold still drive straight.
	got = ctrvPropagate([augDim]float64{0, 0, 10, 0, 5e-4, 0, 0}, 1.0, 1e-3)
	assert.Equal(t, 10.0, got[idxPX])
	assert.InDelta(t, 5e-4, got[idxYaw], 1e-15)
}

func TestCTRVTurn(t *testing.T) {
	// A quarter circle of radius v/yawd = 2.
	yawd := math.Pi / 2
	got := ctrvPropagate([augDim]float64{0, 0, math.Pi, 0, yawd, 0, 0}, 1.0, 1e-3)
	assert.InDelta(t, 2, got[idxPX], 1e-12)
	assert.InDelta(t, 2, got[idxPY], 1e-12)
	assert.InDelta(t, math.Pi, got[idxV], 1e-15)
	assert.InDelta(t, math.Pi/2, got[idxYaw], 1e-15)
	assert.InDelta(t, yawd, got[idxYawRate], 1e-15)
}

func TestCTRVNoiseTerms(t *testing.T) {
	dt := 0.1
	got := ctrvPropagate([augDim]float64{0, 0, 1, 0, 0, 2, 3}, dt, 1e-3)
	assert.InDelta(t, 1*dt+0.5*2*dt*dt, got[idxPX], 1e-15)
	assert.InDelta(t, 0, got[idxPY], 1e-15)
	assert.InDelta(t, 1+2*dt, got[idxV], 1e-15)
	assert.InDelta(t, 0.5*3*dt*dt, got[idxYaw], 1e-15)
	assert.InDelta(t, 3*dt, got[idxYawRate], 1e-15)
}
