package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
	"github.com/iliyamo/bus-seat-reservation/internal/service"
)

// Scheduler manages vehicle seats and trip seat inventory.
type Scheduler interface {
	RegisterVehicleSeats(ctx context.Context, vehicleID uint64, specs []service.SeatSpec) ([]model.Seat, error)
	ScheduleTrip(ctx context.Context, tripID, vehicleID uint64) (int64, error)
}

// SeatLocker withdraws seats from sale and returns them.
type SeatLocker interface {
	LockPermanently(ctx context.Context, tripSeatID uint64) error
	UnlockPermanently(ctx context.Context, tripSeatID uint64) error
}

// IntegrityScanner lists seat/ticket disagreements for a trip.
type IntegrityScanner interface {
	Check(ctx context.Context, tripID uint64) ([]model.IntegrityIssue, error)
}

// Sweeper runs an expiration sweep on demand.
type Sweeper interface {
	SweepOnce(ctx context.Context) (service.SweepResult, error)
}

// AdminHandler serves operator endpoints.
type AdminHandler struct {
	inventory Scheduler
	seats     SeatLocker
	integrity IntegrityScanner
	sweeper   Sweeper
	log       *zap.Logger
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(inventory Scheduler, seats SeatLocker, integrity IntegrityScanner, sweeper Sweeper, log *zap.Logger) *AdminHandler {
	if inventory == nil || seats == nil || integrity == nil || sweeper == nil {
		panic("nil dependency passed to NewAdminHandler")
	}
	return &AdminHandler{
		inventory: inventory,
		seats:     seats,
		integrity: integrity,
		sweeper:   sweeper,
		log:       log.Named("admin"),
	}
}

type seatSpecBody struct {
	Number string `json:"seat_number" validate:"required,max=8"`
	Class  string `json:"class" validate:"seat_class"`
}

type registerSeatsBody struct {
	Seats []seatSpecBody `json:"seats" validate:"required,min=1,max=100,dive"`
}

type seatTemplateView struct {
	ID         uint64 `json:"id"`
	SeatNumber string `json:"seat_number"`
	Class      string `json:"class"`
}

// RegisterSeats handles POST /v1/admin/vehicles/:id/seats.
func (h *AdminHandler) RegisterSeats(c echo.Context) error {
	vehicleID, ok := pathID(c, "id")
	if !ok {
		return badID(c, "vehicle")
	}
	var body registerSeatsBody
	if ok, err := bind(c, &body); !ok {
		return err
	}
	specs := make([]service.SeatSpec, len(body.Seats))
	for i, s := range body.Seats {
		specs[i] = service.SeatSpec{Number: s.Number, Class: model.SeatClass(s.Class)}
	}
	seats, err := h.inventory.RegisterVehicleSeats(c.Request().Context(), vehicleID, specs)
	if err != nil {
		return respondError(c, h.log, err)
	}
	out := make([]seatTemplateView, len(seats))
	for i, s := range seats {
		out[i] = seatTemplateView{ID: s.ID, SeatNumber: s.SeatNumber, Class: string(s.Class)}
	}
	return c.JSON(http.StatusCreated, echo.Map{"vehicle_id": vehicleID, "seats": out})
}

type scheduleBody struct {
	VehicleID uint64 `json:"vehicle_id" validate:"required,gt=0"`
}

// Schedule handles POST /v1/admin/trips/:id/schedule.
func (h *AdminHandler) Schedule(c echo.Context) error {
	tripID, ok := pathID(c, "id")
	if !ok {
		return badID(c, "trip")
	}
	var body scheduleBody
	if ok, err := bind(c, &body); !ok {
		return err
	}
	n, err := h.inventory.ScheduleTrip(c.Request().Context(), tripID, body.VehicleID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"trip_id": tripID, "vehicle_id": body.VehicleID, "trip_seats": n})
}

// Lock handles POST /v1/admin/trip-seats/:id/lock.
func (h *AdminHandler) Lock(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badID(c, "trip seat")
	}
	if err := h.seats.LockPermanently(c.Request().Context(), id); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"trip_seat_id": id, "status": model.TripSeatLocked})
}

// Unlock handles DELETE /v1/admin/trip-seats/:id/lock.
func (h *AdminHandler) Unlock(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badID(c, "trip seat")
	}
	if err := h.seats.UnlockPermanently(c.Request().Context(), id); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"trip_seat_id": id, "status": model.TripSeatAvailable})
}

// Integrity handles GET /v1/admin/trips/:id/integrity.
func (h *AdminHandler) Integrity(c echo.Context) error {
	tripID, ok := pathID(c, "id")
	if !ok {
		return badID(c, "trip")
	}
	issues, err := h.integrity.Check(c.Request().Context(), tripID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"trip_id": tripID, "issues": issues})
}

// Sweep handles POST /v1/admin/sweeps.
func (h *AdminHandler) Sweep(c echo.Context) error {
	res, err := h.sweeper.SweepOnce(c.Request().Context())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"cutoff":               res.Cutoff,
		"scanned":              res.Scanned,
		"cancelled":            res.Cancelled,
		"skipped":              res.Skipped,
		"failed":               res.Failed,
		"integrity_violations": res.IntegrityViolations,
		"duration_ms":          res.Duration.Milliseconds(),
	})
}
