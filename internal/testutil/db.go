// Package testutil provides shared fixtures for package tests: an
// in-memory SQL database carrying the reservation schema and helpers to
// seed vehicles and trips.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/iliyamo/bus-seat-reservation/internal/database"
)

// OpenDB returns a fresh in-memory database with the schema applied.
// The pool is pinned to a single connection: the database lives only as
// long as that connection, and concurrent callers queue for it the way
// competing writers queue for a row lock.
func OpenDB(t testing.TB) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	t.Cleanup(func() { db.Close() })

	if err := database.Migrate(context.Background(), db, database.SQLite); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// OpenFileDB returns a file-backed database in WAL mode with conns
// pooled connections, so transactions on different connections really
// overlap.  Writers wait on each other through busy_timeout.
func OpenFileDB(t testing.TB, conns int) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "booking.db")
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(conns)
	db.SetMaxIdleConns(conns)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	if err := database.Migrate(ctx, db, database.SQLite); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	// Open every connection up front so the pragmas are applied before
	// callers start racing.
	held := make([]*sql.Conn, 0, conns)
	for i := 0; i < conns; i++ {
		c, err := db.Conn(ctx)
		if err != nil {
			t.Fatalf("warm connection %d: %v", i, err)
		}
		held = append(held, c)
	}
	for _, c := range held {
		c.Close()
	}
	return db
}

// Epoch is the fixed start time used by fake clocks in tests.
var Epoch = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

// SeedTrip creates n standard seats on vehicleID labelled 1..n and
// schedules them on tripID.  It returns the trip seat ids in ascending
// order.
func SeedTrip(t testing.TB, db *sql.DB, vehicleID, tripID uint64, n int) []uint64 {
	t.Helper()
	ctx := context.Background()
	now := Epoch.Format("2006-01-02 15:04:05.000000")
	for i := 1; i <= n; i++ {
		if _, err := db.ExecContext(ctx,
			`INSERT INTO seats (vehicle_id, seat_number, seat_class, created_at) VALUES (?, ?, 'standard', ?)`,
			vehicleID, fmt.Sprintf("%d", i), now); err != nil {
			t.Fatalf("seed seat: %v", err)
		}
	}
	if _, err := db.ExecContext(ctx,
		`INSERT INTO trip_seats (trip_id, seat_id, seat_number, seat_class, status, version, updated_at)
		 SELECT ?, id, seat_number, seat_class, 'available', 0, ? FROM seats WHERE vehicle_id = ? ORDER BY id`,
		tripID, now, vehicleID); err != nil {
		t.Fatalf("seed trip seats: %v", err)
	}
	rows, err := db.QueryContext(ctx, `SELECT id FROM trip_seats WHERE trip_id = ? ORDER BY id`, tripID)
	if err != nil {
		t.Fatalf("list trip seats: %v", err)
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			t.Fatalf("scan trip seat: %v", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("list trip seats: %v", err)
	}
	return ids
}
