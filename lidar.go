package gofusion

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// UpdateLidar corrects the state with a lidar position through a linear
// Kalman update, and records the lidar NIS.
func (u *UKF) UpdateLidar(m Measurement) error {
	_, _, err := u.updateLidar(m)
	return err
}

func (u *UKF) updateLidar(m Measurement) (*mat.VecDense, *mat.SymDense, error) {
	if m.Sensor != Laser {
		return nil, nil, fmt.Errorf("%w: lidar update fed a %s measurement", ErrInvalidInput, m.Sensor)
	}
	if err := m.Validate(); err != nil {
		return nil, nil, err
	}
	if err := checkMatDims(m.Raw, lidarH, "measurement (z)", "H", rows2rows); err != nil {
		return nil, nil, err
	}

	// Innovation y = z - H x
	var zPred, y mat.VecDense
	zPred.MulVec(lidarH, u.x)
	y.SubVec(m.Raw, &zPred)

	// S = H P Hᵀ + R
	var PHt, HPHt mat.Dense
	PHt.Mul(u.p, lidarH.T())
	HPHt.Mul(lidarH, &PHt)
	s, err := Symmetrize(&HPHt)
	if err != nil {
		return nil, nil, err
	}
	s.AddSym(s, u.lidarR)
	sInv, err := innovationInverse(s)
	if err != nil {
		return nil, nil, err
	}

	// K = P Hᵀ S⁻¹
	var K mat.Dense
	K.Mul(&PHt, sInv)

	x := mat.NewVecDense(stateDim, nil)
	x.MulVec(&K, &y)
	x.AddVec(x, u.x)

	// P = (I - K H) P
	var KH, IKH, Pkp1 mat.Dense
	KH.Mul(&K, lidarH)
	IKH.Sub(Identity(stateDim), &KH)
	Pkp1.Mul(&IKH, u.p)
	p, err := Symmetrize(&Pkp1)
	if err != nil {
		return nil, nil, err
	}

	nis := mat.Inner(&y, sInv, &y)
	if !allFinite(x) || !allFinite(p) || math.IsNaN(nis) || math.IsInf(nis, 0) {
		return nil, nil, fmt.Errorf("%w: lidar update produced non-finite values", ErrNumericalFailure)
	}
	u.nisLaser = nis
	u.commit(x, p)
	return &y, s, nil
}
