package gofusion

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// NISThreshold returns the p quantile of the chi-square distribution whose
// degrees of freedom are the measurement size of the sensor. For p = 0.95 this
// is 5.991 for the lidar and 7.815 for the radar.
func NISThreshold(sensor SensorType, p float64) (float64, error) {
	dof := sensor.Dim()
	if dof == 0 {
		return 0, fmt.Errorf("%w: unknown sensor %s", ErrInvalidInput, sensor)
	}
	if !(p > 0 && p < 1) {
		return 0, fmt.Errorf("%w: probability must be in (0, 1), got %f", ErrInvalidInput, p)
	}
	return distuv.ChiSquared{K: float64(dof)}.Quantile(p), nil
}

// NISSummary describes the NIS values of one sensor.
type NISSummary struct {
	Sensor    SensorType
	Count     int
	Mean      float64
	Threshold float64 // 95% chi-square quantile
	Above     float64 // fraction of values above Threshold
}

func (s NISSummary) String() string {
	return fmt.Sprintf("%s NIS: n=%d mean=%.3f above %.3f: %.1f%%", s.Sensor, s.Count, s.Mean, s.Threshold, 100*s.Above)
}

// NISConsistency accumulates NIS values per sensor. A consistent filter has
// about 5% of its values above the 95% threshold.
type NISConsistency struct {
	values map[SensorType][]float64
}

// NewNISConsistency returns an empty NISConsistency.
func NewNISConsistency() *NISConsistency {
	return &NISConsistency{values: make(map[SensorType][]float64)}
}

// Add records the NIS of an estimate. Estimates without a measurement update are ignored.
func (c *NISConsistency) Add(est *UKFEstimate) {
	if est == nil || !est.Updated() {
		return
	}
	c.AddValue(est.Sensor(), est.NIS())
}

// AddValue records a raw NIS value.
func (c *NISConsistency) AddValue(sensor SensorType, nis float64) {
	c.values[sensor] = append(c.values[sensor], nis)
}

// Values returns the recorded NIS values of a sensor.
func (c *NISConsistency) Values(sensor SensorType) []float64 {
	return c.values[sensor]
}

// Summary returns the count, the mean and the fraction above the 95%
// threshold of the NIS values of a sensor.
func (c *NISConsistency) Summary(sensor SensorType) (NISSummary, error) {
	threshold, err := NISThreshold(sensor, 0.95)
	if err != nil {
		return NISSummary{}, err
	}
	vals := c.values[sensor]
	summary := NISSummary{Sensor: sensor, Count: len(vals), Threshold: threshold, Mean: math.NaN()}
	if len(vals) == 0 {
		return summary, nil
	}
	summary.Mean = stat.Mean(vals, nil)
	above := 0
	for _, v := range vals {
		if v > threshold {
			above++
		}
	}
	summary.Above = float64(above) / float64(len(vals))
	return summary, nil
}
