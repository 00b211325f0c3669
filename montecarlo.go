package gofusion

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// TruthState is an exact CTRV state [px, py, v, yaw, yaw_rate] at a timestamp.
type TruthState struct {
	Timestamp int64
	State     [stateDim]float64
}

// GroundTruth returns the Cartesian position and velocity of this state.
func (s TruthState) GroundTruth() GroundTruth {
	v, yaw := s.State[idxV], s.State[idxYaw]
	return GroundTruth{s.State[idxPX], s.State[idxPY], v * math.Cos(yaw), v * math.Sin(yaw)}
}

// SimulateCTRV returns steps noiseless CTRV states, dtUS microseconds apart,
// the first one being x0 at start.
func SimulateCTRV(x0 [stateDim]float64, start, dtUS int64, steps int) []TruthState {
	eps := DefaultConfig().YawRateEpsilon
	dt := float64(dtUS) / usPerSec
	states := make([]TruthState, steps)
	x := x0
	for k := 0; k < steps; k++ {
		if k > 0 {
			var aug [augDim]float64
			copy(aug[:], x[:])
			x = ctrvPropagate(aug, dt, eps)
		}
		states[k] = TruthState{start + int64(k)*dtUS, x}
	}
	return states
}

// GenerateSamples measures every truth state with the sensors of the pattern
// in turn, corrupted by the provided noise.
func GenerateSamples(truth []TruthState, noise Noise, pattern ...SensorType) ([]Sample, error) {
	if len(pattern) == 0 {
		return nil, fmt.Errorf("%w: empty sensor pattern", ErrInvalidInput)
	}
	cfg := DefaultConfig()
	samples := make([]Sample, len(truth))
	for k, ts := range truth {
		sensor := pattern[k%len(pattern)]
		x := ts.State
		var m Measurement
		switch sensor {
		case Laser:
			m = NewLidarMeasurement(x[idxPX], x[idxPY], ts.Timestamp)
		case Radar:
			z := radarProject(x[idxPX], x[idxPY], x[idxV], x[idxYaw], cfg.RangeEpsilon, cfg.RangeClamp)
			m = NewRadarMeasurement(z[idxRho], z[idxPhi], z[idxRhoDot], ts.Timestamp)
		default:
			return nil, fmt.Errorf("%w: unknown sensor %s in pattern", ErrInvalidInput, sensor)
		}
		m.Raw.AddVec(m.Raw, noise.Measurement(sensor))
		if sensor == Radar {
			m.Raw.SetVec(idxPhi, NormalizeAngle(m.Raw.AtVec(idxPhi)))
		}
		gt := ts.GroundTruth()
		samples[k] = Sample{Measurement: m, Truth: &gt}
	}
	return samples, nil
}

// MonteCarloRun stores the results of an MC run.
type MonteCarloRun struct {
	Seed      uint64
	Estimates []*UKFEstimate
	Truth     *TruthTracker
}

// MonteCarloRuns stores MC runs.
type MonteCarloRuns struct {
	runs, steps int
	Runs        []MonteCarloRun
}

// NewMonteCarloRuns runs a fresh UKF over the samples generated for each
// seed 1..runs. Every run must produce the same number of samples.
func NewMonteCarloRuns(cfg Config, runs int, samplesFn func(seed uint64) ([]Sample, error)) (MonteCarloRuns, error) {
	if runs < 1 {
		return MonteCarloRuns{}, fmt.Errorf("%w: need at least one run", ErrInvalidInput)
	}
	mc := MonteCarloRuns{runs: runs, Runs: make([]MonteCarloRun, runs)}
	for r := 0; r < runs; r++ {
		seed := uint64(r + 1)
		samples, err := samplesFn(seed)
		if err != nil {
			return MonteCarloRuns{}, fmt.Errorf("run %d: %w", r, err)
		}
		if r == 0 {
			mc.steps = len(samples)
		} else if len(samples) != mc.steps {
			return MonteCarloRuns{}, fmt.Errorf("%w: run %d has %d samples instead of %d", ErrInvalidInput, r, len(samples), mc.steps)
		}
		ukf, err := NewUKF(cfg)
		if err != nil {
			return MonteCarloRuns{}, err
		}
		run := MonteCarloRun{Seed: seed, Estimates: make([]*UKFEstimate, mc.steps), Truth: NewTruthTracker()}
		for k, s := range samples {
			est, err := ukf.ProcessMeasurement(s.Measurement)
			if err != nil {
				return MonteCarloRuns{}, fmt.Errorf("run %d step %d: %w", r, k, err)
			}
			run.Estimates[k] = est
			if s.Truth != nil {
				run.Truth.Add(est, *s.Truth)
			}
		}
		mc.Runs[r] = run
	}
	return mc, nil
}

// Steps returns the number of estimates in each run.
func (mc MonteCarloRuns) Steps() int {
	return mc.steps
}

// column gathers the i-th state component at the given step across all runs.
func (mc MonteCarloRuns) column(step, i int) []float64 {
	vals := make([]float64, len(mc.Runs))
	for r, run := range mc.Runs {
		vals[r] = run.Estimates[step].State().AtVec(i)
	}
	return vals
}

// Mean returns the mean of all the samples for the given time step.
func (mc MonteCarloRuns) Mean(step int) []float64 {
	means := make([]float64, stateDim)
	for i := range means {
		means[i] = stat.Mean(mc.column(step, i), nil)
	}
	return means
}

// StdDev returns the standard deviation of all the samples for the given time step.
func (mc MonteCarloRuns) StdDev(step int) []float64 {
	devs := make([]float64, stateDim)
	for i := range devs {
		devs[i] = stat.StdDev(mc.column(step, i), nil)
	}
	return devs
}

// PositionError returns the mean and standard deviation across runs of the
// position error norm at the given step.
func (mc MonteCarloRuns) PositionError(step int) (mean, std float64) {
	errs := make([]float64, 0, len(mc.Runs))
	for _, run := range mc.Runs {
		all := run.Truth.Errors()
		if step < len(all) {
			errs = append(errs, all[step])
		}
	}
	return stat.MeanStdDev(errs, nil)
}

// MeanRMSE returns the mean across runs of the RMSE of [px, py, vx, vy].
func (mc MonteCarloRuns) MeanRMSE() ([]float64, error) {
	cols := make([][]float64, 4)
	for _, run := range mc.Runs {
		rmse, err := run.Truth.RMSE()
		if err != nil {
			return nil, err
		}
		for i, v := range rmse {
			cols[i] = append(cols[i], v)
		}
	}
	if len(cols[0]) == 0 {
		return nil, errors.New("no runs to average")
	}
	means := make([]float64, 4)
	for i, col := range cols {
		means[i] = stat.Mean(col, nil)
	}
	return means, nil
}

// NIS gathers the NIS of every update of every run into a consistency check.
func (mc MonteCarloRuns) NIS() *NISConsistency {
	nc := NewNISConsistency()
	for _, run := range mc.Runs {
		for _, est := range run.Estimates {
			nc.Add(est)
		}
	}
	return nc
}

// AsCSV is used as a CSV serializer, one block per state component. Does not include the header.
func (mc MonteCarloRuns) AsCSV(headers []string) []string {
	if len(headers) > stateDim {
		headers = headers[:stateDim]
	}
	rtn := make([]string, len(headers))
	for i, header := range headers {
		lines := make([]string, mc.steps+1) // One line per step, plus header.
		for rNo := 0; rNo < mc.runs; rNo++ {
			lines[0] += fmt.Sprintf("%s-%d,", header, rNo)
		}
		lines[0] += header + "-mean," + header + "-stddev"

		for k := 0; k < mc.steps; k++ {
			for _, run := range mc.Runs {
				lines[k+1] += fmt.Sprintf("%f,", run.Estimates[k].State().AtVec(i))
			}
			lines[k+1] += fmt.Sprintf("%f,%f", mc.Mean(k)[i], mc.StdDev(k)[i])
		}
		rtn[i] = strings.Join(lines, "\n")
	}
	return rtn
}
