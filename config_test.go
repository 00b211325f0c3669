package gofusion

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 0.4, cfg.StdA)
	assert.Equal(t, 0.65, cfg.StdYawdd)
	assert.Equal(t, 0.03, cfg.StdRadPhi)
	assert.Equal(t, [stateDim]float64{1, 1, 1, 100, 100}, cfg.PriorDiag)
	assert.Equal(t, 1e-3, cfg.YawRateEpsilon)
	assert.Equal(t, 0.01, cfg.RangeClamp)
	assert.Equal(t, DispatchBySensor, cfg.Dispatch)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative std_a", func(c *Config) { c.StdA = -1 }},
		{"zero lidar noise", func(c *Config) { c.StdLasPX = 0 }},
		{"zero radar noise", func(c *Config) { c.StdRadPhi = 0 }},
		{"zero prior", func(c *Config) { c.PriorDiag[3] = 0 }},
		{"zero clamp", func(c *Config) { c.RangeClamp = 0 }},
		{"negative retries", func(c *Config) { c.CholeskyRetries = -1 }},
		{"unknown dispatch", func(c *Config) { c.Dispatch = 7 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInput))
		})
	}

	// A filter without process noise is legal.
	cfg := DefaultConfig()
	cfg.StdA = 0
	cfg.StdYawdd = 0
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "ukf.json")
	testJSON := `{
  "std_a": 1.5,
  "std_radphi": 0.05,
  "prior_diag": [2, 2, 4, 10, 10],
  "dispatch": "alternating"
}`
	require.NoError(t, os.WriteFile(configPath, []byte(testJSON), 0644))

	cfg, err := LoadConfig(configPath)
	require.NoError(t, err)

	want := DefaultConfig()
	want.StdA = 1.5
	want.StdRadPhi = 0.05
	want.PriorDiag = [stateDim]float64{2, 2, 4, 10, 10}
	want.Dispatch = DispatchAlternating
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("LoadConfig mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tmpDir := t.TempDir()

	_, err := LoadConfig(filepath.Join(tmpDir, "ukf.yaml"))
	assert.ErrorContains(t, err, ".json extension")

	_, err = LoadConfig(filepath.Join(tmpDir, "missing.json"))
	assert.ErrorContains(t, err, "failed to stat")

	bad := filepath.Join(tmpDir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0644))
	_, err = LoadConfig(bad)
	assert.ErrorContains(t, err, "failed to parse")

	short := filepath.Join(tmpDir, "short.json")
	require.NoError(t, os.WriteFile(short, []byte(`{"prior_diag": [1, 2]}`), 0644))
	_, err = LoadConfig(short)
	assert.True(t, errors.Is(err, ErrInvalidInput))

	invalid := filepath.Join(tmpDir, "invalid.json")
	require.NoError(t, os.WriteFile(invalid, []byte(`{"std_radr": 0}`), 0644))
	_, err = LoadConfig(invalid)
	assert.True(t, errors.Is(err, ErrInvalidInput))

	mode := filepath.Join(tmpDir, "mode.json")
	require.NoError(t, os.WriteFile(mode, []byte(`{"dispatch": "random"}`), 0644))
	_, err = LoadConfig(mode)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}
