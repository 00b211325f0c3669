package gofusion

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrInvalidInput flags a caller contract violation: a malformed
	// measurement, a timestamp going backwards or an invalid configuration.
	// The filter is left untouched.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNumericalFailure flags a factorization or an inversion which could not
	// be completed. The cycle which raised it is skipped and the filter stays usable.
	ErrNumericalFailure = errors.New("numerical failure")
)

// DimensionAgreement defines how two matrices' dimensions should agree.
type DimensionAgreement uint8

const (
	dimErrMsg                    = "dimensions must agree: "
	rows2cols DimensionAgreement = iota + 1
	cols2rows
	cols2cols
	rows2rows
	rowsAndcols
)

// checkMatDims checks the matrix dimensions match provided a DimensionAgreement.
// The returned error wraps ErrInvalidInput.
func checkMatDims(m1, m2 mat.Matrix, name1, name2 string, method DimensionAgreement) error {
	r1, c1 := m1.Dims()
	r2, c2 := m2.Dims()
	switch method {
	case rows2cols:
		if r1 != c2 {
			return fmt.Errorf("%w: %s%s(%dx...) %s(...x%d)", ErrInvalidInput, dimErrMsg, name1, r1, name2, c2)
		}
	case cols2rows:
		if c1 != r2 {
			return fmt.Errorf("%w: %s%s(...x%d) %s(%dx...)", ErrInvalidInput, dimErrMsg, name1, c1, name2, r2)
		}
	case cols2cols:
		if c1 != c2 {
			return fmt.Errorf("%w: %s%s(...x%d) %s(...x%d)", ErrInvalidInput, dimErrMsg, name1, c1, name2, c2)
		}
	case rows2rows:
		if r1 != r2 {
			return fmt.Errorf("%w: %s%s(%dx...) %s(%dx...)", ErrInvalidInput, dimErrMsg, name1, r1, name2, r2)
		}
	case rowsAndcols:
		if c1 != c2 || r1 != r2 {
			return fmt.Errorf("%w: %s%s(%dx%d) %s(%dx%d)", ErrInvalidInput, dimErrMsg, name1, r1, c1, name2, r2, c2)
		}
	}
	return nil
}
