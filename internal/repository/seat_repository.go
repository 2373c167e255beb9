package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

const mysqlErrDuplicateKey = 1062

// isDuplicateKey reports a unique-index violation on MySQL.
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlErrDuplicateKey
}

// querier picks the caller's transaction when given one and the pool
// otherwise.
func querier(db *sql.DB, q Querier) Querier {
	if q != nil {
		return q
	}
	return db
}

// SeatRepo provides access to the vehicle seat templates.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo constructs a SeatRepo with the given DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo {
	return &SeatRepo{db: db}
}

// CreateBulk inserts the given seats in a single statement.  IDs are not
// populated; use ListByVehicle to read them back.
func (r *SeatRepo) CreateBulk(ctx context.Context, q Querier, seats []model.Seat, now time.Time) error {
	if len(seats) == 0 {
		return nil
	}
	query := `INSERT INTO seats (vehicle_id, seat_number, seat_class, created_at) VALUES `
	args := make([]any, 0, len(seats)*4)
	ts := formatTime(now)
	for i, s := range seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?)"
		args = append(args, s.VehicleID, s.SeatNumber, string(s.Class), ts)
	}
	if _, err := querier(r.db, q).ExecContext(ctx, query, args...); err != nil {
		if isDuplicateKey(err) {
			return ErrConflict
		}
		return err
	}
	return nil
}

// ListByVehicle returns every seat template of a vehicle ordered by id.
func (r *SeatRepo) ListByVehicle(ctx context.Context, q Querier, vehicleID uint64) ([]model.Seat, error) {
	const stmt = `SELECT id, vehicle_id, seat_number, seat_class, created_at
	              FROM seats
	              WHERE vehicle_id = ?
	              ORDER BY id`
	rows, err := querier(r.db, q).QueryContext(ctx, stmt, vehicleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Seat
	for rows.Next() {
		var (
			s       model.Seat
			class   string
			created nullTime
		)
		if err := rows.Scan(&s.ID, &s.VehicleID, &s.SeatNumber, &class, &created); err != nil {
			return nil, err
		}
		s.Class = model.SeatClass(class)
		s.CreatedAt = created.Time
		out = append(out, s)
	}
	return out, rows.Err()
}
