package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/roster"
)

// AttendanceRepository stores attendance history in PostgreSQL.
type AttendanceRepository struct {
	pool *Pool
}

// NewAttendanceRepository creates a new PostgreSQL attendance repository.
func NewAttendanceRepository(pool *Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

var _ database.AttendanceWriter = (*AttendanceRepository)(nil)

// SaveRun stores a run and its records. Saving the same run ID again replaces it.
func (r *AttendanceRepository) SaveRun(ctx context.Context, run *database.AttendanceRun) error {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, "DELETE FROM attendance_runs WHERE id = $1", run.ID); err != nil {
		return fmt.Errorf("delete previous run: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO attendance_runs (id, branch, session, tolerance, taken_at, photo_path,
		                             faces_detected, faces_matched, unrecognized_faces, no_eligible_students)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, run.ID, run.Cohort.Branch, run.Cohort.Session, run.Tolerance, run.TakenAt, run.PhotoPath,
		run.FacesDetected, run.FacesMatched, run.UnrecognizedFaces, run.NoEligibleStudents)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO attendance_records (run_id, position, reg_no, name, branch, session, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`)
	if err != nil {
		return fmt.Errorf("prepare record insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range run.Records {
		id := rec.Identity
		if _, err := stmt.ExecContext(ctx, run.ID, i, id.RegNo, id.Name, id.Branch, id.Session, rec.Status.String()); err != nil {
			return fmt.Errorf("insert record %s: %w", id.RegNo, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

const runColumns = `id, branch, session, tolerance, taken_at, photo_path,
	faces_detected, faces_matched, unrecognized_faces, no_eligible_students, created_at`

func scanRun(row interface{ Scan(...any) error }) (*database.AttendanceRun, error) {
	var run database.AttendanceRun
	err := row.Scan(&run.ID, &run.Cohort.Branch, &run.Cohort.Session, &run.Tolerance, &run.TakenAt,
		&run.PhotoPath, &run.FacesDetected, &run.FacesMatched, &run.UnrecognizedFaces,
		&run.NoEligibleStudents, &run.CreatedAt)
	if err != nil {
		return nil, err //nolint:wrapcheck // callers wrap
	}
	return &run, nil
}

// GetRun retrieves a run with its records, returns nil if not found.
func (r *AttendanceRepository) GetRun(ctx context.Context, id string) (*database.AttendanceRun, error) {
	run, err := scanRun(r.pool.QueryRow(ctx, "SELECT "+runColumns+" FROM attendance_runs WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}

	records, err := r.getRecords(ctx, id)
	if err != nil {
		return nil, err
	}
	run.Records = records
	return run, nil
}

func (r *AttendanceRepository) getRecords(ctx context.Context, runID string) ([]database.AttendanceRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT reg_no, name, branch, session, status
		FROM attendance_records
		WHERE run_id = $1
		ORDER BY position
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []database.AttendanceRecord
	for rows.Next() {
		var rec database.AttendanceRecord
		var status string
		if err := rows.Scan(&rec.Identity.RegNo, &rec.Identity.Name, &rec.Identity.Branch, &rec.Identity.Session, &status); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		var s attendance.Status
		if err := s.UnmarshalText([]byte(status)); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.Status = s
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

// ListRuns returns run headers newest first, without records.
func (r *AttendanceRepository) ListRuns(ctx context.Context, cohort roster.Cohort, limit int) ([]database.AttendanceRun, error) {
	query := "SELECT " + runColumns + " FROM attendance_runs"
	args := []any{}
	if !cohort.IsZero() {
		query += " WHERE branch = $1 AND session = $2"
		args = append(args, cohort.Branch, cohort.Session)
	}
	query += fmt.Sprintf(" ORDER BY taken_at DESC, id LIMIT $%d", len(args)+1)
	args = append(args, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []database.AttendanceRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}
