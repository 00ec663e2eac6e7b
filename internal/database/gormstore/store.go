// Package gormstore stores attendance records in SQLite or MySQL through gorm.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	mysqldrv "github.com/go-sql-driver/mysql"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kozaktomas/geoface/internal/config"
	"github.com/kozaktomas/geoface/internal/database"
)

func init() {
	database.RegisterBackend(config.DriverSQLite, func(cfg *config.DatabaseConfig) (database.AttendanceRepository, error) {
		return OpenSQLite(cfg)
	})
	database.RegisterBackend(config.DriverMySQL, func(cfg *config.DatabaseConfig) (database.AttendanceRepository, error) {
		return OpenMySQL(cfg)
	})
}

// Store is an attendance repository backed by a pooled gorm handle.
type Store struct {
	db *gorm.DB
}

// OpenSQLite opens (creating if needed) the SQLite database file at cfg.URL.
func OpenSQLite(cfg *config.DatabaseConfig) (*Store, error) {
	if cfg.URL == "" {
		return nil, errors.New("SQLite database path is required")
	}
	if dir := filepath.Dir(cfg.URL); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(cfg.URL), &gorm.Config{Logger: newGormLogger(nil)})
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}
	return newStore(db, cfg)
}

// OpenMySQL connects to the MySQL or MariaDB server described by the DSN in cfg.URL.
func OpenMySQL(cfg *config.DatabaseConfig) (*Store, error) {
	if cfg.URL == "" {
		return nil, errors.New("MySQL DSN is required")
	}
	dsnCfg, err := mysqldrv.ParseDSN(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid MySQL DSN: %w", err)
	}
	dsnCfg.ParseTime = true
	if dsnCfg.Loc == nil {
		dsnCfg.Loc = time.UTC
	}

	db, err := gorm.Open(gormmysql.Open(dsnCfg.FormatDSN()), &gorm.Config{Logger: newGormLogger(nil)})
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL: %w", err)
	}
	return newStore(db, cfg)
}

func newStore(db *gorm.DB, cfg *config.DatabaseConfig) (*Store, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting database handle: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.Migrate(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the attendance table if it does not exist.
func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(&database.AttendanceRecord{}); err != nil {
		return fmt.Errorf("migrating attendance table: %w", err)
	}
	return nil
}

// Record inserts one attendance row and returns it as stored.
func (s *Store) Record(ctx context.Context, rec *database.AttendanceRecord) (*database.AttendanceRecord, error) {
	if rec == nil || rec.EmployeeName == "" {
		return nil, errors.New("employee name is required")
	}

	row := *rec
	row.ID = 0
	var stored database.AttendanceRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("inserting attendance record: %w", err)
		}
		if err := tx.First(&stored, row.ID).Error; err != nil {
			return fmt.Errorf("reading back attendance record: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

func (s *Store) filtered(ctx context.Context, f database.AttendanceFilter) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&database.AttendanceRecord{})
	if f.Name != "" {
		q = q.Where("employee_name = ?", f.Name)
	}
	if !f.Since.IsZero() {
		q = q.Where(clause.Gte{Column: clause.Column{Name: "timestamp"}, Value: f.Since.UTC()})
	}
	return q
}

// List returns matching records, newest first.
func (s *Store) List(ctx context.Context, f database.AttendanceFilter) ([]database.AttendanceRecord, error) {
	q := s.filtered(ctx, f).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "timestamp"}, Desc: true}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: true})
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var records []database.AttendanceRecord
	if err := q.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("listing attendance records: %w", err)
	}
	return records, nil
}

// Count returns the number of matching records.
func (s *Store) Count(ctx context.Context, f database.AttendanceFilter) (int64, error) {
	var n int64
	if err := s.filtered(ctx, f).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("counting attendance records: %w", err)
	}
	return n, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("getting database handle: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("closing database connection: %w", err)
	}
	return nil
}
