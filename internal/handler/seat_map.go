package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

// SeatMapper reads trip seat status from the ledger.
type SeatMapper interface {
	SeatMap(ctx context.Context, tripID uint64) ([]model.TripSeat, error)
	AvailableSeats(ctx context.Context, tripID uint64) ([]model.TripSeat, error)
}

// SeatMapHandler serves the public seat map.
type SeatMapHandler struct {
	seats SeatMapper
	log   *zap.Logger
}

// NewSeatMapHandler constructs a SeatMapHandler.
func NewSeatMapHandler(seats SeatMapper, log *zap.Logger) *SeatMapHandler {
	return &SeatMapHandler{seats: seats, log: log.Named("seatmap")}
}

// List handles GET /v1/trips/:id/seats.  With ?available=true only
// claimable seats are returned.
func (h *SeatMapHandler) List(c echo.Context) error {
	tripID, ok := pathID(c, "id")
	if !ok {
		return badID(c, "trip")
	}
	var (
		seats []model.TripSeat
		err   error
	)
	if c.QueryParam("available") == "true" {
		seats, err = h.seats.AvailableSeats(c.Request().Context(), tripID)
	} else {
		seats, err = h.seats.SeatMap(c.Request().Context(), tripID)
	}
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"trip_id": tripID, "seats": viewSeats(seats)})
}
