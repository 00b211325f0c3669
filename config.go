package gofusion

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"
)

// Config holds the tunable constants of the UKF. Use DefaultConfig and
// override fields, or LoadConfig to overlay a JSON file on the defaults.
type Config struct {
	// Process noise standard deviations.
	StdA     float64 // longitudinal acceleration, m/s²
	StdYawdd float64 // yaw acceleration, rad/s²

	// Lidar noise standard deviations, m.
	StdLasPX float64
	StdLasPY float64

	// Radar noise standard deviations.
	StdRadR   float64 // range, m
	StdRadPhi float64 // bearing, rad
	StdRadRD  float64 // range rate, m/s

	// PriorDiag is the diagonal of the covariance before the first measurement.
	PriorDiag [stateDim]float64

	// YawRateEpsilon is the yaw rate under which the CTRV model drives straight.
	YawRateEpsilon float64
	// RangeEpsilon and RangeClamp guard the radar range rate division: a sigma
	// point whose px and py are both within RangeEpsilon of zero is projected
	// as if both were RangeClamp.
	RangeEpsilon float64
	RangeClamp   float64

	// CholeskyJitter is added to the diagonal of the augmented covariance when
	// it fails to factorize, and grows tenfold on every retry.
	CholeskyJitter  float64
	CholeskyRetries int
	// CovarianceFloor is the smallest eigenvalue the state covariance may keep.
	CovarianceFloor float64

	Dispatch DispatchMode
}

// DefaultConfig returns the tuning of the reference CTRV filter.
func DefaultConfig() Config {
	return Config{
		StdA:            0.4,
		StdYawdd:        0.65,
		StdLasPX:        0.15,
		StdLasPY:        0.15,
		StdRadR:         0.3,
		StdRadPhi:       0.03,
		StdRadRD:        0.3,
		PriorDiag:       [stateDim]float64{1, 1, 1, 100, 100},
		YawRateEpsilon:  1e-3,
		RangeEpsilon:    1e-3,
		RangeClamp:      0.01,
		CholeskyJitter:  1e-9,
		CholeskyRetries: 6,
		CovarianceFloor: 1e-9,
		Dispatch:        DispatchBySensor,
	}
}

// Validate checks that the configuration can drive a filter.
func (c Config) Validate() error {
	stds := []struct {
		name string
		val  float64
	}{
		{"std_a", c.StdA},
		{"std_yawdd", c.StdYawdd},
		{"std_laspx", c.StdLasPX},
		{"std_laspy", c.StdLasPY},
		{"std_radr", c.StdRadR},
		{"std_radphi", c.StdRadPhi},
		{"std_radrd", c.StdRadRD},
	}
	for _, s := range stds {
		if s.val < 0 || math.IsNaN(s.val) || math.IsInf(s.val, 0) {
			return fmt.Errorf("%w: %s must be finite and non-negative, got %f", ErrInvalidInput, s.name, s.val)
		}
	}
	// Measurement noise enters S directly, zero would make it singular.
	if c.StdLasPX == 0 || c.StdLasPY == 0 || c.StdRadR == 0 || c.StdRadPhi == 0 || c.StdRadRD == 0 {
		return fmt.Errorf("%w: measurement noise standard deviations must be positive", ErrInvalidInput)
	}
	for i, v := range c.PriorDiag {
		if !(v > 0) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: prior_diag[%d] must be positive, got %f", ErrInvalidInput, i, v)
		}
	}
	if c.YawRateEpsilon < 0 || c.RangeEpsilon < 0 {
		return fmt.Errorf("%w: epsilons must be non-negative", ErrInvalidInput)
	}
	if !(c.RangeClamp > 0) {
		return fmt.Errorf("%w: range_clamp must be positive, got %f", ErrInvalidInput, c.RangeClamp)
	}
	if c.CholeskyJitter < 0 || c.CholeskyRetries < 0 || c.CovarianceFloor < 0 {
		return fmt.Errorf("%w: jitter, retries and covariance floor must be non-negative", ErrInvalidInput)
	}
	if c.Dispatch != DispatchBySensor && c.Dispatch != DispatchAlternating {
		return fmt.Errorf("%w: unknown dispatch mode %s", ErrInvalidInput, c.Dispatch)
	}
	return nil
}

// configFile is the JSON schema of a configuration file. Omitted fields keep
// their default values.
type configFile struct {
	StdA            *float64  `json:"std_a,omitempty"`
	StdYawdd        *float64  `json:"std_yawdd,omitempty"`
	StdLasPX        *float64  `json:"std_laspx,omitempty"`
	StdLasPY        *float64  `json:"std_laspy,omitempty"`
	StdRadR         *float64  `json:"std_radr,omitempty"`
	StdRadPhi       *float64  `json:"std_radphi,omitempty"`
	StdRadRD        *float64  `json:"std_radrd,omitempty"`
	PriorDiag       []float64 `json:"prior_diag,omitempty"`
	YawRateEpsilon  *float64  `json:"yaw_rate_epsilon,omitempty"`
	RangeEpsilon    *float64  `json:"range_epsilon,omitempty"`
	RangeClamp      *float64  `json:"range_clamp,omitempty"`
	CholeskyJitter  *float64  `json:"cholesky_jitter,omitempty"`
	CholeskyRetries *int      `json:"cholesky_retries,omitempty"`
	CovarianceFloor *float64  `json:"covariance_floor,omitempty"`
	Dispatch        *string   `json:"dispatch,omitempty"`
}

func overlay(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

func (f configFile) apply(c *Config) error {
	overlay(&c.StdA, f.StdA)
	overlay(&c.StdYawdd, f.StdYawdd)
	overlay(&c.StdLasPX, f.StdLasPX)
	overlay(&c.StdLasPY, f.StdLasPY)
	overlay(&c.StdRadR, f.StdRadR)
	overlay(&c.StdRadPhi, f.StdRadPhi)
	overlay(&c.StdRadRD, f.StdRadRD)
	overlay(&c.YawRateEpsilon, f.YawRateEpsilon)
	overlay(&c.RangeEpsilon, f.RangeEpsilon)
	overlay(&c.RangeClamp, f.RangeClamp)
	overlay(&c.CholeskyJitter, f.CholeskyJitter)
	overlay(&c.CovarianceFloor, f.CovarianceFloor)
	if f.CholeskyRetries != nil {
		c.CholeskyRetries = *f.CholeskyRetries
	}
	if f.PriorDiag != nil {
		if len(f.PriorDiag) != stateDim {
			return fmt.Errorf("%w: prior_diag needs %d values, got %d", ErrInvalidInput, stateDim, len(f.PriorDiag))
		}
		copy(c.PriorDiag[:], f.PriorDiag)
	}
	if f.Dispatch != nil {
		mode, err := ParseDispatchMode(*f.Dispatch)
		if err != nil {
			return err
		}
		c.Dispatch = mode
	}
	return nil
}

// LoadConfig reads a JSON configuration file and overlays it on DefaultConfig.
// The file must have a .json extension and be under 1MB.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return cfg, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return cfg, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return cfg, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	var file configFile
	if err := json.Unmarshal(data, &file); err != nil {
		return cfg, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := file.apply(&cfg); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// processNoise returns diag(std_a², std_yawdd²).
func (c Config) processNoise() (float64, float64) {
	return c.StdA * c.StdA, c.StdYawdd * c.StdYawdd
}

// lidarNoise returns R for the lidar update.
func (c Config) lidarNoise() *mat.SymDense {
	return Diagonal(c.StdLasPX*c.StdLasPX, c.StdLasPY*c.StdLasPY)
}

// radarNoise returns R for the radar update.
func (c Config) radarNoise() *mat.SymDense {
	return Diagonal(c.StdRadR*c.StdRadR, c.StdRadPhi*c.StdRadPhi, c.StdRadRD*c.StdRadRD)
}
