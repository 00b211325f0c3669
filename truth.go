package gofusion

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// GroundTruth is the true Cartesian position and velocity of the tracked object.
type GroundTruth struct {
	PX, PY, VX, VY float64
}

// Vector returns [px, py, vx, vy].
func (g GroundTruth) Vector() [4]float64 {
	return [4]float64{g.PX, g.PY, g.VX, g.VY}
}

// EstimateToCartesian maps a CTRV state [px, py, v, yaw, ...] onto [px, py, vx, vy].
func EstimateToCartesian(x mat.Vector) [4]float64 {
	v, yaw := x.AtVec(idxV), x.AtVec(idxYaw)
	return [4]float64{x.AtVec(idxPX), x.AtVec(idxPY), v * math.Cos(yaw), v * math.Sin(yaw)}
}

// RMSE returns the root mean squared error of each of [px, py, vx, vy]
// between the estimates and the ground truths.
func RMSE(estimates [][4]float64, truths []GroundTruth) ([]float64, error) {
	if len(estimates) == 0 {
		return nil, errors.New("no estimates to compare")
	}
	if len(estimates) != len(truths) {
		return nil, fmt.Errorf("got %d estimates but %d ground truths", len(estimates), len(truths))
	}
	sq := make([]float64, 4)
	residual := make([]float64, 4)
	for k, est := range estimates {
		truth := truths[k].Vector()
		floats.SubTo(residual, est[:], truth[:])
		floats.Mul(residual, residual)
		floats.Add(sq, residual)
	}
	floats.Scale(1/float64(len(estimates)), sq)
	for i, v := range sq {
		sq[i] = math.Sqrt(v)
	}
	return sq, nil
}

// TruthTracker accumulates estimate and ground truth pairs for a running RMSE.
type TruthTracker struct {
	estimates [][4]float64
	truths    []GroundTruth
}

// NewTruthTracker returns an empty TruthTracker.
func NewTruthTracker() *TruthTracker {
	return &TruthTracker{}
}

// Add records an estimate along with the ground truth at its timestamp.
func (t *TruthTracker) Add(est *UKFEstimate, truth GroundTruth) {
	t.estimates = append(t.estimates, est.Cartesian())
	t.truths = append(t.truths, truth)
}

// Len returns the number of recorded pairs.
func (t *TruthTracker) Len() int {
	return len(t.truths)
}

// RMSE returns the RMSE of [px, py, vx, vy] over all recorded pairs.
func (t *TruthTracker) RMSE() ([]float64, error) {
	return RMSE(t.estimates, t.truths)
}

// Errors returns the position error norm of every recorded pair.
func (t *TruthTracker) Errors() []float64 {
	errs := make([]float64, len(t.truths))
	for k, est := range t.estimates {
		errs[k] = math.Hypot(est[0]-t.truths[k].PX, est[1]-t.truths[k].PY)
	}
	return errs
}
