package database

import (
	"context"
)

// AttendanceWriter appends attendance records.
type AttendanceWriter interface {
	// Record inserts rec in its own transaction. The store assigns the id and,
	// when rec.Timestamp is zero, the timestamp. The stored row is returned.
	Record(ctx context.Context, rec *AttendanceRecord) (*AttendanceRecord, error)
}

// AttendanceReader provides read-only access to attendance records
type AttendanceReader interface {
	// List returns records newest first
	List(ctx context.Context, filter AttendanceFilter) ([]AttendanceRecord, error)
	// Count returns the number of records matching the filter (Limit is ignored)
	Count(ctx context.Context, filter AttendanceFilter) (int64, error)
}

// AttendanceRepository is a complete attendance store.
type AttendanceRepository interface {
	AttendanceWriter
	AttendanceReader
	Close() error
}
