package gofusion

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// UpdateRadar corrects the state with a radar measurement through the
// unscented transform of the sigma points retained by the last Prediction,
// and records the radar NIS.
func (u *UKF) UpdateRadar(m Measurement) error {
	_, _, err := u.updateRadar(m)
	return err
}

func (u *UKF) updateRadar(m Measurement) (*mat.VecDense, *mat.SymDense, error) {
	if m.Sensor != Radar {
		return nil, nil, fmt.Errorf("%w: radar update fed a %s measurement", ErrInvalidInput, m.Sensor)
	}
	if err := m.Validate(); err != nil {
		return nil, nil, err
	}
	if !u.sigmaFresh {
		return nil, nil, fmt.Errorf("%w: radar update needs a prediction first", ErrInvalidInput)
	}

	// Sigma points in measurement space.
	zSig := mat.NewDense(radarDim, numSigma, nil)
	for i := 0; i < numSigma; i++ {
		// The clamp applies to the projection only; sigmaPred keeps the unclamped position.
		z := radarProject(
			u.sigmaPred.At(idxPX, i),
			u.sigmaPred.At(idxPY, i),
			u.sigmaPred.At(idxV, i),
			u.sigmaPred.At(idxYaw, i),
			u.cfg.RangeEpsilon,
			u.cfg.RangeClamp,
		)
		zSig.SetCol(i, z[:])
	}
	var zPred mat.VecDense
	zPred.MulVec(zSig, u.weights)

	// Measurement covariance S and cross covariance T.
	s := mat.NewSymDense(radarDim, nil)
	T := mat.NewDense(stateDim, radarDim, nil)
	dz := mat.NewVecDense(radarDim, nil)
	dx := mat.NewVecDense(stateDim, nil)
	for i := 0; i < numSigma; i++ {
		w := u.weights.AtVec(i)
		dz.SubVec(zSig.ColView(i), &zPred)
		dz.SetVec(idxPhi, NormalizeAngle(dz.AtVec(idxPhi)))
		dx.SubVec(u.sigmaPred.ColView(i), u.x)
		dx.SetVec(idxYaw, NormalizeAngle(dx.AtVec(idxYaw)))
		s.SymRankOne(s, w, dz)
		T.RankOne(T, w, dx, dz)
	}
	s.AddSym(s, u.radarR)
	sInv, err := innovationInverse(s)
	if err != nil {
		return nil, nil, err
	}

	// K = T S⁻¹
	var K mat.Dense
	K.Mul(T, sInv)

	y := mat.NewVecDense(radarDim, nil)
	y.SubVec(m.Raw, &zPred)
	y.SetVec(idxPhi, NormalizeAngle(y.AtVec(idxPhi)))

	x := mat.NewVecDense(stateDim, nil)
	x.MulVec(&K, y)
	x.AddVec(x, u.x)

	// P = P - K S Kᵀ
	var KS, KSKt, Pkp1 mat.Dense
	KS.Mul(&K, s)
	KSKt.Mul(&KS, K.T())
	Pkp1.Sub(u.p, &KSKt)
	p, err := Symmetrize(&Pkp1)
	if err != nil {
		return nil, nil, err
	}

	nis := mat.Inner(y, sInv, y)
	if !allFinite(x) || !allFinite(p) || math.IsNaN(nis) || math.IsInf(nis, 0) {
		return nil, nil, fmt.Errorf("%w: radar update produced non-finite values", ErrNumericalFailure)
	}
	u.nisRadar = nis
	u.commit(x, p)
	return y, s, nil
}
