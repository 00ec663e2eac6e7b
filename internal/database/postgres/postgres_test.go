//go:build integration

package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kozaktomas/geoface/internal/config"
	"github.com/kozaktomas/geoface/internal/database"
)

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	cfg := &config.DatabaseConfig{
		Driver:       config.DriverPostgres,
		URL:          fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port()),
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	pool, err := NewPool(cfg)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create pool: %v", err)
	}

	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		pool.Close()
		container.Terminate(ctx)
	}

	return pool, cleanup
}

func TestAttendanceRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewAttendanceRepository(pool)

	t.Run("Record", func(t *testing.T) {
		stored, err := repo.Record(ctx, &database.AttendanceRecord{
			EmployeeName: "Bob",
			Latitude:     12.9,
			Longitude:    77.6,
			LocationName: "Bengaluru",
			ImagePath:    "faces/bob.jpg",
		})
		if err != nil {
			t.Fatalf("Failed to record: %v", err)
		}
		if stored.ID == 0 {
			t.Error("Expected assigned id")
		}
		if time.Since(stored.Timestamp) > time.Minute {
			t.Errorf("Expected current timestamp, got %v", stored.Timestamp)
		}
		if stored.EmployeeName != "Bob" || stored.Latitude != 12.9 || stored.Longitude != 77.6 ||
			stored.LocationName != "Bengaluru" || stored.ImagePath != "faces/bob.jpg" {
			t.Errorf("Unexpected stored row %+v", stored)
		}
	})

	t.Run("Count", func(t *testing.T) {
		n, err := repo.Count(ctx, database.AttendanceFilter{})
		if err != nil {
			t.Fatalf("Failed to count: %v", err)
		}
		if n != 1 {
			t.Errorf("Expected 1, got %d", n)
		}
	})

	t.Run("List", func(t *testing.T) {
		for _, name := range []string{"alice", "alice", "carol"} {
			if _, err := repo.Record(ctx, &database.AttendanceRecord{EmployeeName: name}); err != nil {
				t.Fatal(err)
			}
		}

		rows, err := repo.List(ctx, database.AttendanceFilter{Name: "alice"})
		if err != nil {
			t.Fatalf("Failed to list: %v", err)
		}
		if len(rows) != 2 {
			t.Errorf("Expected 2 rows for alice, got %d", len(rows))
		}

		rows, err = repo.List(ctx, database.AttendanceFilter{Limit: 1})
		if err != nil {
			t.Fatal(err)
		}
		if len(rows) != 1 || rows[0].EmployeeName != "carol" {
			t.Errorf("Expected newest row carol, got %+v", rows)
		}

		rows, err = repo.List(ctx, database.AttendanceFilter{Since: time.Now().Add(time.Hour)})
		if err != nil {
			t.Fatal(err)
		}
		if len(rows) != 0 {
			t.Errorf("Expected no future rows, got %d", len(rows))
		}
	})

	t.Run("MigrationsIdempotent", func(t *testing.T) {
		if err := pool.Migrate(ctx); err != nil {
			t.Fatalf("Second migrate failed: %v", err)
		}
		versions, err := pool.MigrationsApplied(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(versions) != 1 || versions[0] != "001_attendance.sql" {
			t.Errorf("Unexpected applied migrations %v", versions)
		}
	})
}
