package gofusion

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// SensorType identifies the sensor which produced a measurement.
type SensorType uint8

const (
	// Laser definition would be a tautology
	Laser SensorType = iota + 1
	// Radar definition would be a tautology
	Radar
)

// Dim returns the length of the raw measurement vector of this sensor.
func (s SensorType) Dim() int {
	switch s {
	case Laser:
		return lidarDim
	case Radar:
		return radarDim
	}
	return 0
}

func (s SensorType) String() string {
	switch s {
	case Laser:
		return "laser"
	case Radar:
		return "radar"
	}
	return fmt.Sprintf("SensorType(%d)", uint8(s))
}

// ParseSensorType parses the single letter tag used in measurement logs ("L" or "R").
func ParseSensorType(tag string) (SensorType, error) {
	switch tag {
	case "L", "l", "laser", "lidar":
		return Laser, nil
	case "R", "r", "radar":
		return Radar, nil
	}
	return 0, fmt.Errorf("%w: unknown sensor tag %q", ErrInvalidInput, tag)
}

// DispatchMode selects which measurement update follows a prediction.
type DispatchMode uint8

const (
	// DispatchBySensor runs the update matching the measurement's own sensor tag.
	DispatchBySensor DispatchMode = iota
	// DispatchAlternating reproduces the legacy laser/radar toggle: after the
	// bootstrap sensor, only the other sensor may update, and each update
	// hands over to the other sensor. Measurements of the disabled sensor are
	// only predicted.
	DispatchAlternating
)

func (d DispatchMode) String() string {
	switch d {
	case DispatchBySensor:
		return "sensor"
	case DispatchAlternating:
		return "alternating"
	}
	return fmt.Sprintf("DispatchMode(%d)", uint8(d))
}

// ParseDispatchMode parses "sensor" or "alternating".
func ParseDispatchMode(s string) (DispatchMode, error) {
	switch s {
	case "", "sensor":
		return DispatchBySensor, nil
	case "alternating", "legacy":
		return DispatchAlternating, nil
	}
	return 0, fmt.Errorf("%w: unknown dispatch mode %q", ErrInvalidInput, s)
}

// Dimensions of the CTRV filter.
const (
	stateDim = 5            // [px, py, v, yaw, yaw_rate]
	augDim   = 7            // state plus longitudinal and yaw acceleration noise
	numSigma = 2*augDim + 1 // sigma points per prediction
	lidarDim = 2            // [px, py]
	radarDim = 3            // [rho, phi, rho_dot]
	usPerSec = 1e6          // timestamps are in microseconds
)

// State vector indices.
const (
	idxPX = iota
	idxPY
	idxV
	idxYaw
	idxYawRate
	idxNuA
	idxNuYawdd
)

// Radar measurement indices.
const (
	idxRho = iota
	idxPhi
	idxRhoDot
)

// Estimator defines a sensor fusion filter fed one measurement at a time.
type Estimator interface {
	ProcessMeasurement(m Measurement) (*UKFEstimate, error)
	State() *mat.VecDense
	Covariance() *mat.SymDense
	NIS(sensor SensorType) float64
	Reset()
	String() string
}

// Estimate is returned from ProcessMeasurement.
type Estimate interface {
	IsWithinNσ(N float64) bool     // IsWithinNσ returns whether the state is within the N*σ bounds.
	State() *mat.VecDense          // Returns \hat{x}_{k+1}^{+}
	Innovation() *mat.VecDense     // Returns z_{k} - \hat{z}_{k+1}^{-}
	Covariance() mat.Symmetric     // Return P_{k+1}^{+}
	PredCovariance() mat.Symmetric // Return P_{k+1}^{-}
	NIS() float64                  // Normalized innovation squared of the update
	String() string                // Must implement the stringer interface.
}
