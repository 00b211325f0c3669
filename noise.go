package gofusion

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// Noise corrupts simulated sensor measurements.
type Noise interface {
	Measurement(sensor SensorType) *mat.VecDense        // Returns a measurement noise draw for this sensor
	MeasurementMatrix(sensor SensorType) mat.Symmetric // Returns the measurement noise matrix R of this sensor
	String() string                                    // Stringer interface implementation
}

// Noiseless is noiseless and implements the Noise interface.
type Noiseless struct{}

// Measurement returns a zero vector of the sensor's size.
func (n Noiseless) Measurement(sensor SensorType) *mat.VecDense {
	return mat.NewVecDense(sensor.Dim(), nil)
}

// MeasurementMatrix returns a zero matrix of the sensor's size.
func (n Noiseless) MeasurementMatrix(sensor SensorType) mat.Symmetric {
	return mat.NewSymDense(sensor.Dim(), nil)
}

// String implements the Stringer interface.
func (n Noiseless) String() string {
	return "Noiseless"
}

// AWGN implements the Noise interface and generates an additive white
// Gaussian noise with the measurement covariances of a Config.
type AWGN struct {
	lidarR, radarR *mat.SymDense
	lidar, radar   *distmv.Normal
}

// NewAWGN creates new AWGN noise from the sensor standard deviations of cfg.
// The same seed yields the same sequence of draws.
func NewAWGN(cfg Config, seed uint64) (*AWGN, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	src := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	lidarR := cfg.lidarNoise()
	lidar, ok := distmv.NewNormal(make([]float64, lidarDim), lidarR, src)
	if !ok {
		return nil, fmt.Errorf("%w: lidar noise covariance is not positive definite", ErrInvalidInput)
	}
	radarR := cfg.radarNoise()
	radar, ok := distmv.NewNormal(make([]float64, radarDim), radarR, src)
	if !ok {
		return nil, fmt.Errorf("%w: radar noise covariance is not positive definite", ErrInvalidInput)
	}
	return &AWGN{lidarR, radarR, lidar, radar}, nil
}

// Measurement implements the Noise interface.
func (n *AWGN) Measurement(sensor SensorType) *mat.VecDense {
	switch sensor {
	case Laser:
		return mat.NewVecDense(lidarDim, n.lidar.Rand(nil))
	case Radar:
		return mat.NewVecDense(radarDim, n.radar.Rand(nil))
	}
	panic(fmt.Errorf("no noise defined for %s", sensor))
}

// MeasurementMatrix implements the Noise interface.
func (n *AWGN) MeasurementMatrix(sensor SensorType) mat.Symmetric {
	if sensor == Radar {
		return n.radarR
	}
	return n.lidarR
}

// String implements the Stringer interface.
func (n *AWGN) String() string {
	return fmt.Sprintf("AWGN{\nRl=%v\nRr=%v}\n", mat.Formatted(n.lidarR, mat.Prefix("   ")), mat.Formatted(n.radarR, mat.Prefix("   ")))
}
