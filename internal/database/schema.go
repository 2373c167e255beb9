package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Dialect selects the DDL flavour used by Migrate.  Queries issued by the
// repositories are written to run unchanged on both.
type Dialect string

const (
	MySQL  Dialect = "mysql"
	SQLite Dialect = "sqlite"
)

// Timestamps are stored as "YYYY-MM-DD HH:MM:SS.ffffff" UTC so that
// range predicates such as expires_at < ? compare correctly on both
// engines.
var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS seats (
		id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		vehicle_id  BIGINT UNSIGNED NOT NULL,
		seat_number VARCHAR(16)     NOT NULL,
		seat_class  ENUM('standard','vip','bed') NOT NULL DEFAULT 'standard',
		created_at  DATETIME(6)     NOT NULL,
		UNIQUE KEY uq_seats_vehicle_number (vehicle_id, seat_number)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS trip_seats (
		id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		trip_id     BIGINT UNSIGNED NOT NULL,
		seat_id     BIGINT UNSIGNED NOT NULL,
		seat_number VARCHAR(16)     NOT NULL,
		seat_class  ENUM('standard','vip','bed') NOT NULL DEFAULT 'standard',
		status      ENUM('available','booked','locked') NOT NULL DEFAULT 'available',
		ticket_id   CHAR(36)        NULL,
		version     INT UNSIGNED    NOT NULL DEFAULT 0,
		updated_at  DATETIME(6)     NOT NULL,
		UNIQUE KEY uq_trip_seats_trip_seat (trip_id, seat_id),
		KEY idx_trip_seats_trip_status (trip_id, status)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS tickets (
		id               CHAR(36)        NOT NULL PRIMARY KEY,
		trip_seat_id     BIGINT UNSIGNED NOT NULL,
		trip_id          BIGINT UNSIGNED NOT NULL,
		seat_number      VARCHAR(16)     NOT NULL,
		booking_group_id CHAR(36)        NOT NULL,
		status           ENUM('booked','confirmed','cancelled') NOT NULL,
		expires_at       DATETIME(6)     NULL,
		trip_type        ENUM('one_way','round_trip') NOT NULL,
		is_return_trip   TINYINT(1)      NOT NULL DEFAULT 0,
		linked_ticket_id CHAR(36)        NULL,
		price_cents      INT UNSIGNED    NOT NULL,
		customer_name    VARCHAR(128)    NOT NULL,
		customer_phone   VARCHAR(32)     NOT NULL,
		customer_email   VARCHAR(255)    NOT NULL,
		booked_by        VARCHAR(128)    NOT NULL DEFAULT '',
		pickup_point     VARCHAR(128)    NOT NULL,
		dropoff_point    VARCHAR(128)    NOT NULL,
		booked_at        DATETIME(6)     NOT NULL,
		confirmed_at     DATETIME(6)     NULL,
		cancelled_at     DATETIME(6)     NULL,
		cancel_reason    VARCHAR(32)     NOT NULL DEFAULT '',
		KEY idx_tickets_status_expires (status, expires_at, id),
		KEY idx_tickets_group (booking_group_id),
		KEY idx_tickets_trip_seat (trip_seat_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS seats (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		vehicle_id  INTEGER NOT NULL,
		seat_number TEXT    NOT NULL,
		seat_class  TEXT    NOT NULL DEFAULT 'standard',
		created_at  TEXT    NOT NULL,
		UNIQUE (vehicle_id, seat_number)
	)`,
	`CREATE TABLE IF NOT EXISTS trip_seats (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		trip_id     INTEGER NOT NULL,
		seat_id     INTEGER NOT NULL,
		seat_number TEXT    NOT NULL,
		seat_class  TEXT    NOT NULL DEFAULT 'standard',
		status      TEXT    NOT NULL DEFAULT 'available',
		ticket_id   TEXT    NULL,
		version     INTEGER NOT NULL DEFAULT 0,
		updated_at  TEXT    NOT NULL,
		UNIQUE (trip_id, seat_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_trip_seats_trip_status ON trip_seats (trip_id, status)`,
	`CREATE TABLE IF NOT EXISTS tickets (
		id               TEXT    PRIMARY KEY,
		trip_seat_id     INTEGER NOT NULL,
		trip_id          INTEGER NOT NULL,
		seat_number      TEXT    NOT NULL,
		booking_group_id TEXT    NOT NULL,
		status           TEXT    NOT NULL,
		expires_at       TEXT    NULL,
		trip_type        TEXT    NOT NULL,
		is_return_trip   INTEGER NOT NULL DEFAULT 0,
		linked_ticket_id TEXT    NULL,
		price_cents      INTEGER NOT NULL,
		customer_name    TEXT    NOT NULL,
		customer_phone   TEXT    NOT NULL,
		customer_email   TEXT    NOT NULL,
		booked_by        TEXT    NOT NULL DEFAULT '',
		pickup_point     TEXT    NOT NULL,
		dropoff_point    TEXT    NOT NULL,
		booked_at        TEXT    NOT NULL,
		confirmed_at     TEXT    NULL,
		cancelled_at     TEXT    NULL,
		cancel_reason    TEXT    NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tickets_status_expires ON tickets (status, expires_at, id)`,
	`CREATE INDEX IF NOT EXISTS idx_tickets_group ON tickets (booking_group_id)`,
	`CREATE INDEX IF NOT EXISTS idx_tickets_trip_seat ON tickets (trip_seat_id)`,
}

// Migrate creates the reservation tables when they do not exist yet.
// It is safe to run on every start.
func Migrate(ctx context.Context, db *sql.DB, d Dialect) error {
	var stmts []string
	switch d {
	case MySQL:
		stmts = mysqlSchema
	case SQLite:
		stmts = sqliteSchema
	default:
		return fmt.Errorf("migrate: unknown dialect %q", d)
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
