package service

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/iliyamo/bus-seat-reservation/internal/clock"
	"github.com/iliyamo/bus-seat-reservation/internal/model"
	"github.com/iliyamo/bus-seat-reservation/internal/repository"
)

// SeatSpec describes one seat to register on a vehicle.
type SeatSpec struct {
	Number string
	Class  model.SeatClass
}

// Inventory manages vehicle seat templates and the trip seats derived
// from them.
type Inventory struct {
	db        *sql.DB
	seats     *repository.SeatRepo
	tripSeats *repository.TripSeatRepo
	clock     clock.Clock
	log       *zap.Logger
	retry     repository.RetryPolicy
}

// NewInventory constructs an Inventory.
func NewInventory(db *sql.DB, seats *repository.SeatRepo, tripSeats *repository.TripSeatRepo,
	clk clock.Clock, log *zap.Logger, retry repository.RetryPolicy) *Inventory {
	return &Inventory{db: db, seats: seats, tripSeats: tripSeats, clock: clk, log: log.Named("inventory"), retry: retry}
}

// RegisterVehicleSeats adds seats to a vehicle and returns the vehicle's
// full seat list.  A seat number already present on the vehicle yields
// repository.ErrConflict and nothing is added.
func (inv *Inventory) RegisterVehicleSeats(ctx context.Context, vehicleID uint64, specs []SeatSpec) ([]model.Seat, error) {
	if len(specs) == 0 {
		return nil, invalid("no seats given")
	}
	seen := make(map[string]struct{}, len(specs))
	seats := make([]model.Seat, 0, len(specs))
	for _, sp := range specs {
		if sp.Number == "" {
			return nil, invalid("empty seat number")
		}
		if sp.Class == "" {
			sp.Class = model.SeatClassStandard
		}
		if !sp.Class.Valid() {
			return nil, invalid("unknown seat class %q", sp.Class)
		}
		if _, dup := seen[sp.Number]; dup {
			return nil, invalid("seat number %q given twice", sp.Number)
		}
		seen[sp.Number] = struct{}{}
		seats = append(seats, model.Seat{VehicleID: vehicleID, SeatNumber: sp.Number, Class: sp.Class})
	}

	var out []model.Seat
	err := repository.RunInTx(ctx, inv.db, inv.retry, func(tx *sql.Tx) error {
		existing, err := inv.seats.ListByVehicle(ctx, tx, vehicleID)
		if err != nil {
			return err
		}
		for _, e := range existing {
			if _, clash := seen[e.SeatNumber]; clash {
				return fmt.Errorf("seat %q on vehicle %d: %w", e.SeatNumber, vehicleID, repository.ErrConflict)
			}
		}
		if err := inv.seats.CreateBulk(ctx, tx, seats, inv.clock.Now()); err != nil {
			return err
		}
		out, err = inv.seats.ListByVehicle(ctx, tx, vehicleID)
		return err
	})
	if err != nil {
		return nil, err
	}
	inv.log.Info("vehicle seats registered", zap.Uint64("vehicle_id", vehicleID), zap.Int("added", len(seats)))
	return out, nil
}

// ScheduleTrip creates one available trip seat per seat of the vehicle
// and returns how many were created.  Scheduling a trip twice yields
// repository.ErrConflict.
func (inv *Inventory) ScheduleTrip(ctx context.Context, tripID, vehicleID uint64) (int64, error) {
	var n int64
	err := repository.RunInTx(ctx, inv.db, inv.retry, func(tx *sql.Tx) error {
		seats, err := inv.seats.ListByVehicle(ctx, tx, vehicleID)
		if err != nil {
			return err
		}
		if len(seats) == 0 {
			return invalid("vehicle %d has no seats", vehicleID)
		}
		n, err = inv.tripSeats.CreateFromVehicle(ctx, tx, tripID, vehicleID, inv.clock.Now())
		return err
	})
	if err != nil {
		return 0, err
	}
	inv.log.Info("trip scheduled", zap.Uint64("trip_id", tripID), zap.Uint64("vehicle_id", vehicleID), zap.Int64("seats", n))
	return n, nil
}
