package gofusion

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Exporter defines an export interface.
type Exporter interface {
	Write(est *UKFEstimate, truth *GroundTruth) error
	Close() error
}

// csvHeaders are the columns written by CSVExporter.
var csvHeaders = []string{
	"time_us", "sensor", "updated",
	"px", "py", "v", "yaw", "yaw_rate",
	"px+2s", "px-2s", "py+2s", "py-2s",
	"nis", "gt_px", "gt_py", "gt_vx", "gt_vy",
}

// CSVExporter writes one row per estimate to a CSV file.
type CSVExporter struct {
	delimiter string
	runID     string
	hdlr      *os.File
}

// NewCSVExporter creates dir/filename and writes the header. An empty runID
// gets a fresh UUID.
func NewCSVExporter(dir, filename, runID string) (*CSVExporter, error) {
	f, err := os.Create(filepath.Join(dir, filename))
	if err != nil {
		return nil, err
	}
	if runID == "" {
		runID = uuid.NewString()
	}
	e := &CSVExporter{",", runID, f}
	hdr := fmt.Sprintf("# Run: %s\n# Creation date (UTC): %s\n%s", runID, time.Now().UTC(), strings.Join(csvHeaders, e.delimiter))
	if err := e.WriteRawLn(hdr); err != nil {
		f.Close()
		return nil, err
	}
	return e, nil
}

// RunID returns the identifier written in the header.
func (e *CSVExporter) RunID() string {
	return e.runID
}

// Name returns the path of the CSV file.
func (e *CSVExporter) Name() string {
	return e.hdlr.Name()
}

// Close closes the file.
func (e *CSVExporter) Close() error {
	if err := e.WriteRawLn(fmt.Sprintf("# Closing date (UTC): %s", time.Now().UTC())); err != nil {
		return err
	}
	return e.hdlr.Close()
}

// Write writes the estimate and the optional ground truth to the CSV file.
func (e *CSVExporter) Write(est *UKFEstimate, truth *GroundTruth) error {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }
	vals := []string{
		strconv.FormatInt(est.Timestamp(), 10),
		est.Sensor().String(),
		strconv.FormatBool(est.Updated()),
	}
	for i := 0; i < stateDim; i++ {
		vals = append(vals, f(est.State().AtVec(i)))
	}
	σ := est.Sigma()
	for _, i := range []int{idxPX, idxPY} {
		x := est.State().AtVec(i)
		vals = append(vals, f(x+2*σ[i]), f(x-2*σ[i]))
	}
	vals = append(vals, f(est.NIS()))
	if truth != nil {
		for _, v := range truth.Vector() {
			vals = append(vals, f(v))
		}
	} else {
		vals = append(vals, "", "", "", "")
	}
	return e.WriteRawLn(strings.Join(vals, e.delimiter))
}

// WriteRawLn writes a raw line to the CSV file.
func (e *CSVExporter) WriteRawLn(s string) error {
	_, err := e.hdlr.WriteString(s + "\n")
	return err
}
