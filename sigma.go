package gofusion

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// sigmaLambda returns the spreading parameter for an augmented dimension.
func sigmaLambda(nAug int) float64 {
	return 3 - float64(nAug)
}

// sigmaWeights returns the 2*nAug+1 weights shared by the mean and the
// covariance reconstructions. They sum to one, the first one is negative
// whenever nAug > 3.
func sigmaWeights(nAug int) *mat.VecDense {
	λ := sigmaLambda(nAug)
	w := mat.NewVecDense(2*nAug+1, nil)
	w.SetVec(0, λ/(λ+float64(nAug)))
	for i := 1; i < w.Len(); i++ {
		w.SetVec(i, 0.5/(λ+float64(nAug)))
	}
	return w
}

// augment returns the augmented mean and covariance: x padded with the two
// zero mean noise terms, and blkdiag(P, std_a², std_yawdd²).
func augment(x *mat.VecDense, p mat.Symmetric, varA, varYawdd float64) (*mat.VecDense, *mat.SymDense) {
	xAug := mat.NewVecDense(augDim, nil)
	pAug := mat.NewSymDense(augDim, nil)
	for i := 0; i < stateDim; i++ {
		xAug.SetVec(i, x.AtVec(i))
		for j := i; j < stateDim; j++ {
			pAug.SetSym(i, j, p.At(i, j))
		}
	}
	pAug.SetSym(idxNuA, idxNuA, varA)
	pAug.SetSym(idxNuYawdd, idxNuYawdd, varYawdd)
	return xAug, pAug
}

// choleskyWithJitter factorizes p, adding jitter·10^k to the diagonal on the
// k-th retry. It returns the lower factor and the jitter which was needed.
func choleskyWithJitter(p *mat.SymDense, jitter float64, retries int) (*mat.TriDense, float64, error) {
	var chol mat.Cholesky
	if chol.Factorize(p) {
		var l mat.TriDense
		chol.LTo(&l)
		return &l, 0, nil
	}
	n := p.SymmetricDim()
	regularized := mat.NewSymDense(n, nil)
	added := jitter
	for k := 0; k < retries && jitter > 0; k++ {
		regularized.CopySym(p)
		for i := 0; i < n; i++ {
			regularized.SetSym(i, i, regularized.At(i, i)+added)
		}
		if chol.Factorize(regularized) {
			var l mat.TriDense
			chol.LTo(&l)
			return &l, added, nil
		}
		added *= 10
	}
	return nil, 0, fmt.Errorf("%w: augmented covariance is not positive definite", ErrNumericalFailure)
}

// sigmaPoints returns the augmented sigma points as columns: the mean, then
// mean + √(λ+n)·Lᵢ and mean - √(λ+n)·Lᵢ for every column Lᵢ of the factor.
func sigmaPoints(xAug *mat.VecDense, l mat.Matrix) *mat.Dense {
	n := xAug.Len()
	scale := math.Sqrt(sigmaLambda(n) + float64(n))
	pts := mat.NewDense(n, 2*n+1, nil)
	for r := 0; r < n; r++ {
		mean := xAug.AtVec(r)
		pts.Set(r, 0, mean)
		for i := 0; i < n; i++ {
			spread := scale * l.At(r, i)
			pts.Set(r, i+1, mean+spread)
			pts.Set(r, i+1+n, mean-spread)
		}
	}
	return pts
}

// ctrvPropagate moves an augmented sigma point dt seconds ahead along the
// constant turn rate and velocity model, noise terms included.
func ctrvPropagate(aug [augDim]float64, dt, eps float64) [stateDim]float64 {
	px, py := aug[idxPX], aug[idxPY]
	v, yaw, yawd := aug[idxV], aug[idxYaw], aug[idxYawRate]
	nuA, nuYawdd := aug[idxNuA], aug[idxNuYawdd]

	var pxP, pyP float64
	if math.Abs(yawd) > eps {
		pxP = px + v/yawd*(math.Sin(yaw+yawd*dt)-math.Sin(yaw))
		pyP = py + v/yawd*(math.Cos(yaw)-math.Cos(yaw+yawd*dt))
	} else {
		pxP = px + v*math.Cos(yaw)*dt
		pyP = py + v*math.Sin(yaw)*dt
	}
	dt2 := dt * dt
	return [stateDim]float64{
		pxP + 0.5*nuA*dt2*math.Cos(yaw),
		pyP + 0.5*nuA*dt2*math.Sin(yaw),
		v + nuA*dt,
		yaw + yawd*dt + 0.5*nuYawdd*dt2,
		yawd + nuYawdd*dt,
	}
}
