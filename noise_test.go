package gofusion

import (
	"errors"
	"testing"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

func TestImplementsNoise(t *testing.T) {
	implements := func(Noise) {}
	implements(new(Noiseless))
	implements(new(AWGN))
}

func TestBlankNoise(t *testing.T) {
	nl := Noiseless{}
	for _, sensor := range []SensorType{Laser, Radar} {
		if r := nl.Measurement(sensor).Len(); r != sensor.Dim() {
			t.Fatalf("%s noise has %d rows", sensor, r)
		}
		R := nl.MeasurementMatrix(sensor)
		rR, rC := R.Dims()
		if rR != sensor.Dim() {
			t.Fatalf("R of %s is of wrong size: %d", sensor, rR)
		}
		for i := 0; i < rR; i++ {
			for j := 0; j < rC; j++ {
				if R.At(i, j) != 0 {
					t.Fatalf("R(%d, %d) != 0", i, j)
				}
			}
		}
	}
}

func TestAWGN(t *testing.T) {
	bad := DefaultConfig()
	bad.StdRadR = 0
	if _, err := NewAWGN(bad, 1); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	cfg := DefaultConfig()
	n, err := NewAWGN(cfg, 42)
	if err != nil {
		t.Fatal(err)
	}
	if !mat.EqualApprox(n.MeasurementMatrix(Laser), Diagonal(0.0225, 0.0225), 1e-15) {
		t.Fatalf("lidar R is %v", mat.Formatted(n.MeasurementMatrix(Laser)))
	}
	if !mat.EqualApprox(n.MeasurementMatrix(Radar), Diagonal(0.09, 0.0009, 0.09), 1e-15) {
		t.Fatalf("radar R is %v", mat.Formatted(n.MeasurementMatrix(Radar)))
	}

	mk0 := n.Measurement(Radar)
	mk1 := n.Measurement(Radar)
	if mk0.Len() != radarDim {
		t.Fatalf("radar noise is a vector with %d rows (instead of 3)", mk0.Len())
	}
	if mat.Equal(mk0, mk1) {
		t.Fatal("measurement noise at two different time steps is identical")
	}

	// Same seed, same draws.
	other, _ := NewAWGN(cfg, 42)
	if !mat.Equal(other.Measurement(Radar), mk0) {
		t.Fatal("AWGN is not reproducible from its seed")
	}

	// The sample spread matches the configured standard deviation.
	draws := make([]float64, 4000)
	for i := range draws {
		draws[i] = n.Measurement(Laser).AtVec(0)
	}
	if sd := stat.StdDev(draws, nil); sd < 0.13 || sd > 0.17 {
		t.Fatalf("lidar noise standard deviation %f far from 0.15", sd)
	}
	if mean := stat.Mean(draws, nil); mean < -0.02 || mean > 0.02 {
		t.Fatalf("lidar noise mean %f far from 0", mean)
	}
}
