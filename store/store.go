// Package store persists fusion runs and their estimates in SQLite.
package store

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/ChristopherRabotin/gofusion"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// schema.sql creates the runs and estimates tables when missing.
//
//go:embed schema.sql
var schemaSQL string

// DB wraps a SQLite handle holding fusion runs.
type DB struct {
	*sql.DB
}

// Row is one stored estimate.
type Row struct {
	Seq       int
	Timestamp int64
	Sensor    gofusion.SensorType
	Updated   bool
	State     [5]float64
	NIS       float64
	Truth     *gofusion.GroundTruth
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &DB{db}, nil
}

// BeginRun registers a new run and returns its identifier.
func (db *DB) BeginRun(source string) (string, error) {
	runID := uuid.NewString()
	if _, err := db.Exec(`INSERT INTO runs (run_id, source) VALUES (?, ?)`, runID, source); err != nil {
		return "", fmt.Errorf("failed to begin run: %w", err)
	}
	return runID, nil
}

// RecordEstimate appends an estimate, and its ground truth when not nil, to a run.
func (db *DB) RecordEstimate(runID string, est *gofusion.UKFEstimate, truth *gofusion.GroundTruth) error {
	if est == nil {
		return errors.New("nil estimate")
	}
	var seq int
	if err := db.QueryRow(`SELECT COUNT(*) FROM estimates WHERE run_id = ?`, runID).Scan(&seq); err != nil {
		return fmt.Errorf("failed to count estimates: %w", err)
	}
	return insertEstimate(db.DB, runID, seq, est, truth)
}

// RecordRun stores a whole run in a single transaction. truths may be nil or
// must have one entry per estimate.
func (db *DB) RecordRun(source string, estimates []*gofusion.UKFEstimate, truths []*gofusion.GroundTruth) (string, error) {
	if truths != nil && len(truths) != len(estimates) {
		return "", fmt.Errorf("%d estimates but %d truths", len(estimates), len(truths))
	}
	tx, err := db.Begin()
	if err != nil {
		return "", err
	}
	runID := uuid.NewString()
	if _, err := tx.Exec(`INSERT INTO runs (run_id, source) VALUES (?, ?)`, runID, source); err != nil {
		tx.Rollback()
		return "", fmt.Errorf("failed to begin run: %w", err)
	}
	for i, est := range estimates {
		var truth *gofusion.GroundTruth
		if truths != nil {
			truth = truths[i]
		}
		if err := insertEstimate(tx, runID, i, est, truth); err != nil {
			tx.Rollback()
			return "", err
		}
	}
	return runID, tx.Commit()
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func insertEstimate(db execer, runID string, seq int, est *gofusion.UKFEstimate, truth *gofusion.GroundTruth) error {
	query := `
		INSERT INTO estimates (run_id, seq, time_us, sensor, updated, px, py, v, yaw, yaw_rate, nis, gt_px, gt_py, gt_vx, gt_vy)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	x := est.State()
	gt := make([]sql.NullFloat64, 4)
	if truth != nil {
		for i, v := range truth.Vector() {
			gt[i] = sql.NullFloat64{Float64: v, Valid: true}
		}
	}
	_, err := db.Exec(query, runID, seq, est.Timestamp(), est.Sensor().String(), est.Updated(),
		x.AtVec(0), x.AtVec(1), x.AtVec(2), x.AtVec(3), x.AtVec(4), est.NIS(),
		gt[0], gt[1], gt[2], gt[3])
	if err != nil {
		return fmt.Errorf("failed to insert estimate %d: %w", seq, err)
	}
	return nil
}

// Runs lists the run identifiers recorded for source, oldest first.
func (db *DB) Runs(source string) ([]string, error) {
	rows, err := db.Query(`SELECT run_id FROM runs WHERE source = ? ORDER BY started_at, rowid`, source)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Estimates reads back the estimates of a run in insertion order.
func (db *DB) Estimates(runID string) ([]Row, error) {
	query := `
		SELECT seq, time_us, sensor, updated, px, py, v, yaw, yaw_rate, nis, gt_px, gt_py, gt_vx, gt_vy
		FROM estimates
		WHERE run_id = ?
		ORDER BY seq
	`
	rows, err := db.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query estimates: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var (
			r      Row
			sensor string
			gt     [4]sql.NullFloat64
		)
		if err := rows.Scan(&r.Seq, &r.Timestamp, &sensor, &r.Updated,
			&r.State[0], &r.State[1], &r.State[2], &r.State[3], &r.State[4], &r.NIS,
			&gt[0], &gt[1], &gt[2], &gt[3]); err != nil {
			return nil, fmt.Errorf("failed to scan estimate: %w", err)
		}
		if r.Sensor, err = gofusion.ParseSensorType(sensor); err != nil {
			return nil, err
		}
		if gt[0].Valid {
			r.Truth = &gofusion.GroundTruth{PX: gt[0].Float64, PY: gt[1].Float64, VX: gt[2].Float64, VY: gt[3].Float64}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
