package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/bus-seat-reservation/internal/middleware"
	"github.com/iliyamo/bus-seat-reservation/internal/model"
	"github.com/iliyamo/bus-seat-reservation/internal/service"
)

// Reserver is the booking side of the reservation core.
type Reserver interface {
	Reserve(ctx context.Context, req service.BookingRequest) (*model.BookingGroup, error)
	Lookup(ctx context.Context, groupID string) (*model.BookingGroup, error)
	LookupFor(ctx context.Context, groupID, bookedBy string) (*model.BookingGroup, error)
}

// BookingHandler serves customer booking endpoints.
type BookingHandler struct {
	bookings Reserver
	log      *zap.Logger
}

// NewBookingHandler constructs a BookingHandler.
func NewBookingHandler(bookings Reserver, log *zap.Logger) *BookingHandler {
	if bookings == nil {
		panic("nil Reserver passed to NewBookingHandler")
	}
	return &BookingHandler{bookings: bookings, log: log.Named("booking")}
}

type customerBody struct {
	Name  string `json:"name" validate:"required,max=120"`
	Phone string `json:"phone" validate:"required,max=32"`
	Email string `json:"email" validate:"omitempty,email,max=254"`
}

type legBody struct {
	TripID       uint64   `json:"trip_id" validate:"required,gt=0"`
	TripSeatIDs  []uint64 `json:"trip_seat_ids" validate:"required,min=1,max=20,dive,gt=0"`
	PickupPoint  string   `json:"pickup_point" validate:"max=120"`
	DropoffPoint string   `json:"dropoff_point" validate:"max=120"`
}

func (l legBody) leg() service.Leg {
	return service.Leg{
		TripID:       l.TripID,
		TripSeatIDs:  l.TripSeatIDs,
		PickupPoint:  l.PickupPoint,
		DropoffPoint: l.DropoffPoint,
	}
}

type createBookingBody struct {
	Customer customerBody `json:"customer"`
	Outbound legBody      `json:"outbound"`
	Return   *legBody     `json:"return" validate:"omitempty"`
}

// Create handles POST /v1/bookings.  It answers 201 with the booked
// group, 409 with the unavailable seat ids when any seat is taken, and
// 400 for requests that can never succeed.
func (h *BookingHandler) Create(c echo.Context) error {
	var body createBookingBody
	if ok, err := bind(c, &body); !ok {
		return err
	}
	req := service.BookingRequest{
		Customer: model.Customer{Name: body.Customer.Name, Phone: body.Customer.Phone, Email: body.Customer.Email},
		BookedBy: middleware.Subject(c),
		Outbound: body.Outbound.leg(),
	}
	if body.Return != nil {
		ret := body.Return.leg()
		req.Return = &ret
	}

	g, err := h.bookings.Reserve(c.Request().Context(), req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, viewGroup(g))
}

// Get handles GET /v1/bookings/:group.  Operators see any group;
// customers only the groups they reserved, others answer 404.
func (h *BookingHandler) Get(c echo.Context) error {
	groupID := c.Param("group")
	if groupID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking group id"})
	}
	var (
		g   *model.BookingGroup
		err error
	)
	ctx := c.Request().Context()
	if middleware.Role(c) == middleware.RoleOperator {
		g, err = h.bookings.Lookup(ctx, groupID)
	} else {
		g, err = h.bookings.LookupFor(ctx, groupID, middleware.Subject(c))
	}
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, viewGroup(g))
}
