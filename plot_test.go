package gofusion

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlots(t *testing.T) {
	truth := SimulateCTRV([stateDim]float64{5, 3, 2, 0, 0.5}, trackStart, 50000, 40)
	samples, err := GenerateSamples(truth, Noiseless{}, Laser, Radar)
	require.NoError(t, err)

	ukf := newTestUKF(t, DefaultConfig())
	var (
		estimates []*UKFEstimate
		truths    []GroundTruth
	)
	for _, s := range samples {
		est, err := ukf.ProcessMeasurement(s.Measurement)
		require.NoError(t, err)
		estimates = append(estimates, est)
		truths = append(truths, *s.Truth)
	}

	dir := t.TempDir()
	track := filepath.Join(dir, "track.png")
	require.NoError(t, PlotTrack(track, estimates, truths))
	info, err := os.Stat(track)
	require.NoError(t, err)
	assert.NotZero(t, info.Size())

	for _, sensor := range []SensorType{Laser, Radar} {
		path := filepath.Join(dir, sensor.String()+"-nis.png")
		require.NoError(t, PlotNIS(path, estimates, sensor))
		_, err := os.Stat(path)
		require.NoError(t, err)
	}

	assert.Error(t, PlotTrack(filepath.Join(dir, "empty.png"), nil, nil))
	assert.Error(t, PlotNIS(filepath.Join(dir, "empty.png"), estimates[:1], Laser), "bootstrap is not an update")
}
