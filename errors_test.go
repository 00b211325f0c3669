package gofusion

import (
	"errors"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestCheckDims(t *testing.T) {
	i22 := Identity(2)
	i33 := Identity(3)
	methods := []DimensionAgreement{rows2cols, cols2rows, cols2cols, rows2rows, rowsAndcols}
	for _, meth := range methods {
		if err := checkMatDims(i22, i22, "i22", "i22", meth); err != nil {
			t.Fatalf("method %+v fails: %s", meth, err)
		}
		err := checkMatDims(i22, i33, "i22", "i33", meth)
		if err == nil {
			t.Fatalf("method %+v does not error when using i22 and i33 ", meth)
		}
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("method %+v error does not wrap ErrInvalidInput: %s", meth, err)
		}
	}
}

func TestCheckDimsVector(t *testing.T) {
	z := mat.NewVecDense(lidarDim, []float64{1, 2})
	if err := checkMatDims(z, lidarH, "z", "H", rows2rows); err != nil {
		t.Fatalf("lidar measurement does not agree with H: %s", err)
	}
	z = mat.NewVecDense(radarDim, []float64{1, 2, 3})
	if err := checkMatDims(z, lidarH, "z", "H", rows2rows); err == nil {
		t.Fatal("radar sized measurement agrees with the lidar H")
	}
}
