package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/bus-seat-reservation/internal/service"
)

// Settler is the payment side of the reservation core.
type Settler interface {
	Confirm(ctx context.Context, groupID string) (service.ConfirmOutcome, error)
	Fail(ctx context.Context, groupID string) (int, error)
}

// PaymentHandler receives payment results for booking groups.
type PaymentHandler struct {
	payments Settler
	log      *zap.Logger
}

// NewPaymentHandler constructs a PaymentHandler.
func NewPaymentHandler(payments Settler, log *zap.Logger) *PaymentHandler {
	if payments == nil {
		panic("nil Settler passed to NewPaymentHandler")
	}
	return &PaymentHandler{payments: payments, log: log.Named("payment")}
}

// Confirm handles POST /v1/bookings/:group/confirm.  A repeated confirm
// answers 200 with outcome already_confirmed; a confirm after the hold
// ended answers 409 with outcome already_expired.
func (h *PaymentHandler) Confirm(c echo.Context) error {
	groupID := c.Param("group")
	out, err := h.payments.Confirm(c.Request().Context(), groupID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	status := http.StatusOK
	if out == service.AlreadyExpired {
		status = http.StatusConflict
	}
	return c.JSON(status, echo.Map{"booking_group_id": groupID, "outcome": out.String()})
}

// Fail handles POST /v1/bookings/:group/fail.
func (h *PaymentHandler) Fail(c echo.Context) error {
	groupID := c.Param("group")
	n, err := h.payments.Fail(c.Request().Context(), groupID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"booking_group_id": groupID, "cancelled": n})
}
