package gofusion

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Sample is a measurement and, when known, the ground truth at its timestamp.
type Sample struct {
	Measurement Measurement
	Truth       *GroundTruth
}

// ReadDataset parses a measurement log. Each line is either
//
//	L px py timestamp [gt_px gt_py gt_vx gt_vy ...]
//	R rho phi rho_dot timestamp [gt_px gt_py gt_vx gt_vy ...]
//
// separated by blanks or tabs. Blank lines and lines starting with # are skipped.
// Ground truth columns past the fourth are ignored.
func ReadDataset(r io.Reader) ([]Sample, error) {
	var samples []Sample
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		sample, err := parseSample(strings.Fields(line))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		samples = append(samples, sample)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}
	return samples, nil
}

func parseSample(fields []string) (Sample, error) {
	sensor, err := ParseSensorType(fields[0])
	if err != nil {
		return Sample{}, err
	}
	dim := sensor.Dim()
	if len(fields) < dim+2 {
		return Sample{}, fmt.Errorf("%w: %s line needs %d values and a timestamp, got %d fields", ErrInvalidInput, sensor, dim, len(fields)-1)
	}
	raw, err := parseFloats(fields[1 : dim+1])
	if err != nil {
		return Sample{}, err
	}
	ts, err := strconv.ParseInt(fields[dim+1], 10, 64)
	if err != nil {
		return Sample{}, fmt.Errorf("%w: timestamp %q: %v", ErrInvalidInput, fields[dim+1], err)
	}

	var m Measurement
	if sensor == Laser {
		m = NewLidarMeasurement(raw[0], raw[1], ts)
	} else {
		m = NewRadarMeasurement(raw[0], raw[1], raw[2], ts)
	}
	if err := m.Validate(); err != nil {
		return Sample{}, err
	}
	sample := Sample{Measurement: m}

	gt := fields[dim+2:]
	switch {
	case len(gt) == 0:
	case len(gt) < 4:
		return Sample{}, fmt.Errorf("%w: ground truth needs 4 values, got %d", ErrInvalidInput, len(gt))
	default:
		vals, err := parseFloats(gt[:4])
		if err != nil {
			return Sample{}, err
		}
		sample.Truth = &GroundTruth{vals[0], vals[1], vals[2], vals[3]}
	}
	return sample, nil
}

func parseFloats(fields []string) ([]float64, error) {
	vals := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: value %q: %v", ErrInvalidInput, f, err)
		}
		vals[i] = v
	}
	return vals, nil
}

// WriteDataset writes samples in the format read by ReadDataset, tab separated.
func WriteDataset(w io.Writer, samples []Sample) error {
	bw := bufio.NewWriter(w)
	for _, s := range samples {
		m := s.Measurement
		cols := []string{"L"}
		if m.Sensor == Radar {
			cols[0] = "R"
		}
		for i := 0; i < m.Raw.Len(); i++ {
			cols = append(cols, strconv.FormatFloat(m.Raw.AtVec(i), 'g', -1, 64))
		}
		cols = append(cols, strconv.FormatInt(m.Timestamp, 10))
		if s.Truth != nil {
			for _, v := range s.Truth.Vector() {
				cols = append(cols, strconv.FormatFloat(v, 'g', -1, 64))
			}
		}
		if _, err := bw.WriteString(strings.Join(cols, "\t") + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}
