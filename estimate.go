package gofusion

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// UKFEstimate is the output of one ProcessMeasurement call.
type UKFEstimate struct {
	sensor       SensorType
	timestamp    int64
	state        *mat.VecDense
	meas         *mat.VecDense
	innovation   *mat.VecDense
	innovCovar   mat.Symmetric
	covar        mat.Symmetric
	predCovar    mat.Symmetric
	nis          float64
	updated      bool
	bootstrapped bool
}

// IsWithinNσ returns whether every innovation component is within N times
// its innovation standard deviation. Bootstrap and prediction only estimates
// have no innovation and are always within bounds.
func (e UKFEstimate) IsWithinNσ(N float64) bool {
	if e.innovation == nil || e.innovCovar == nil {
		return true
	}
	for i := 0; i < e.innovation.Len(); i++ {
		if math.Abs(e.innovation.AtVec(i)) > N*math.Sqrt(e.innovCovar.At(i, i)) {
			return false
		}
	}
	return true
}

// State implements the Estimate interface.
func (e UKFEstimate) State() *mat.VecDense {
	return e.state
}

// Measurement returns the raw measurement which produced this estimate.
func (e UKFEstimate) Measurement() *mat.VecDense {
	return e.meas
}

// Innovation implements the Estimate interface.
func (e UKFEstimate) Innovation() *mat.VecDense {
	return e.innovation
}

// Covariance implements the Estimate interface.
func (e UKFEstimate) Covariance() mat.Symmetric {
	return e.covar
}

// PredCovariance implements the Estimate interface.
func (e UKFEstimate) PredCovariance() mat.Symmetric {
	return e.predCovar
}

// InnovationCovariance returns S, the covariance of the innovation.
func (e UKFEstimate) InnovationCovariance() mat.Symmetric {
	return e.innovCovar
}

// NIS implements the Estimate interface. It is zero when no update ran.
func (e UKFEstimate) NIS() float64 {
	return e.nis
}

// Sensor returns the sensor of the processed measurement.
func (e UKFEstimate) Sensor() SensorType {
	return e.sensor
}

// Timestamp returns the measurement timestamp in microseconds.
func (e UKFEstimate) Timestamp() int64 {
	return e.timestamp
}

// Updated returns whether a measurement update followed the prediction.
func (e UKFEstimate) Updated() bool {
	return e.updated
}

// Bootstrap returns whether this measurement seeded the filter.
func (e UKFEstimate) Bootstrap() bool {
	return e.bootstrapped
}

// Cartesian returns [px, py, vx, vy] of the state.
func (e UKFEstimate) Cartesian() [4]float64 {
	return EstimateToCartesian(e.state)
}

// Sigma returns the standard deviation of each state component.
func (e UKFEstimate) Sigma() [stateDim]float64 {
	var σ [stateDim]float64
	for i := range σ {
		σ[i] = math.Sqrt(math.Max(e.covar.At(i, i), 0))
	}
	return σ
}

func (e UKFEstimate) String() string {
	state := mat.Formatted(e.State().T(), mat.Prefix("  "))
	covar := mat.Formatted(e.Covariance(), mat.Prefix("  "))
	return fmt.Sprintf("%s@%d nis=%.4f updated=%t\nx={%.4f}\nP=%.4f", e.sensor, e.timestamp, e.nis, e.updated, state, covar)
}
