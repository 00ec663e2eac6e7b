package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/kozaktomas/geoface/internal/database"
)

// AttendanceRepository provides PostgreSQL-backed attendance storage
type AttendanceRepository struct {
	pool *Pool
}

// NewAttendanceRepository creates a new PostgreSQL attendance repository
func NewAttendanceRepository(pool *Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

const returningColumns = `id, employee_name, latitude, longitude, location_name, "timestamp", image_path`

// Record inserts one attendance row in its own transaction
func (r *AttendanceRepository) Record(ctx context.Context, rec *database.AttendanceRecord) (*database.AttendanceRecord, error) {
	if rec == nil || rec.EmployeeName == "" {
		return nil, errors.New("employee name is required")
	}

	tx, err := r.pool.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var row *sql.Row
	if rec.Timestamp.IsZero() {
		row = tx.QueryRowContext(ctx, `
			INSERT INTO attendance (employee_name, latitude, longitude, location_name, image_path)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING `+returningColumns,
			rec.EmployeeName, rec.Latitude, rec.Longitude, rec.LocationName, rec.ImagePath)
	} else {
		row = tx.QueryRowContext(ctx, `
			INSERT INTO attendance (employee_name, latitude, longitude, location_name, "timestamp", image_path)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING `+returningColumns,
			rec.EmployeeName, rec.Latitude, rec.Longitude, rec.LocationName, rec.Timestamp, rec.ImagePath)
	}

	stored, err := scanRecord(row)
	if err != nil {
		return nil, fmt.Errorf("insert attendance: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit attendance: %w", err)
	}
	return stored, nil
}

// List returns matching records, newest first
func (r *AttendanceRepository) List(ctx context.Context, f database.AttendanceFilter) ([]database.AttendanceRecord, error) {
	where, args := whereClause(f)
	query := `SELECT ` + returningColumns + ` FROM attendance` + where + ` ORDER BY "timestamp" DESC, id DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.pool.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attendance: %w", err)
	}
	defer rows.Close()

	var records []database.AttendanceRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance: %w", err)
	}
	return records, nil
}

// Count returns the number of matching records
func (r *AttendanceRepository) Count(ctx context.Context, f database.AttendanceFilter) (int64, error) {
	where, args := whereClause(f)
	var n int64
	if err := r.pool.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM attendance`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count attendance: %w", err)
	}
	return n, nil
}

// Close closes the underlying pool
func (r *AttendanceRepository) Close() error {
	return r.pool.Close()
}

func whereClause(f database.AttendanceFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Name != "" {
		args = append(args, f.Name)
		conds = append(conds, fmt.Sprintf("employee_name = $%d", len(args)))
	}
	if !f.Since.IsZero() {
		args = append(args, f.Since)
		conds = append(conds, fmt.Sprintf(`"timestamp" >= $%d`, len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*database.AttendanceRecord, error) {
	var (
		rec                 database.AttendanceRecord
		lat, lon            sql.NullFloat64
		location, imagePath sql.NullString
	)
	if err := s.Scan(&rec.ID, &rec.EmployeeName, &lat, &lon, &location, &rec.Timestamp, &imagePath); err != nil {
		return nil, err
	}
	rec.Latitude = lat.Float64
	rec.Longitude = lon.Float64
	rec.LocationName = location.String
	rec.ImagePath = imagePath.String
	return &rec, nil
}
