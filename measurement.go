package gofusion

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Measurement is a single sensor reading. Raw holds [px, py] for a lidar
// and [rho, phi, rho_dot] for a radar. Timestamp is in microseconds.
type Measurement struct {
	Sensor    SensorType
	Raw       *mat.VecDense
	Timestamp int64
}

// NewLidarMeasurement returns a lidar measurement of the Cartesian position.
func NewLidarMeasurement(px, py float64, timestamp int64) Measurement {
	return Measurement{Laser, mat.NewVecDense(lidarDim, []float64{px, py}), timestamp}
}

// NewRadarMeasurement returns a radar measurement of range, bearing and range rate.
func NewRadarMeasurement(rho, phi, rhoDot float64, timestamp int64) Measurement {
	return Measurement{Radar, mat.NewVecDense(radarDim, []float64{rho, phi, rhoDot}), timestamp}
}

// Validate checks the sensor tag, the raw vector length, that all values are
// finite and that the timestamp is not negative.
func (m Measurement) Validate() error {
	if m.Timestamp < 0 {
		return fmt.Errorf("%w: negative timestamp %d", ErrInvalidInput, m.Timestamp)
	}
	dim := m.Sensor.Dim()
	if dim == 0 {
		return fmt.Errorf("%w: unknown sensor %s", ErrInvalidInput, m.Sensor)
	}
	if m.Raw == nil {
		return fmt.Errorf("%w: %s measurement without values", ErrInvalidInput, m.Sensor)
	}
	if m.Raw.Len() != dim {
		return fmt.Errorf("%w: %s measurement needs %d values, got %d", ErrInvalidInput, m.Sensor, dim, m.Raw.Len())
	}
	if !allFinite(m.Raw) {
		return fmt.Errorf("%w: %s measurement holds non-finite values", ErrInvalidInput, m.Sensor)
	}
	return nil
}

func (m Measurement) String() string {
	if m.Raw == nil {
		return fmt.Sprintf("%s@%d []", m.Sensor, m.Timestamp)
	}
	return fmt.Sprintf("%s@%d %v", m.Sensor, m.Timestamp, mat.Formatted(m.Raw.T(), mat.Squeeze()))
}

// lidarH selects [px, py] out of the state.
var lidarH = mat.NewDense(lidarDim, stateDim, []float64{
	1, 0, 0, 0, 0,
	0, 1, 0, 0, 0,
})

// radarProject maps a state onto the radar measurement space. A position
// within eps of the origin on both axes is replaced by (clamp, clamp) so the
// range rate stays finite.
func radarProject(px, py, v, yaw, eps, clamp float64) [radarDim]float64 {
	if math.Abs(px) < eps && math.Abs(py) < eps {
		px, py = clamp, clamp
	}
	rho := math.Sqrt(px*px + py*py)
	vx := math.Cos(yaw) * v
	vy := math.Sin(yaw) * v
	return [radarDim]float64{rho, math.Atan2(py, px), (px*vx + py*vy) / rho}
}

// polarToState seeds a state from a radar measurement. The range rate stands
// in for the speed and the bearing for the heading.
func polarToState(rho, phi, rhoDot float64) [stateDim]float64 {
	return [stateDim]float64{rho * math.Cos(phi), rho * math.Sin(phi), rhoDot, phi, 0}
}
