// Package handler adapts the reservation core to HTTP.  Handlers bind
// and validate the request, call one service operation and map its
// result or error to a JSON response.
package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
	"github.com/iliyamo/bus-seat-reservation/internal/repository"
	"github.com/iliyamo/bus-seat-reservation/internal/service"
)

// FieldError describes one invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is returned by Validator.Validate.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, fe := range v {
		msgs[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Validator implements echo.Validator with go-playground/validator.
// Field names in errors are the JSON names.
type Validator struct {
	v *validator.Validate
}

// NewValidator returns a Validator that also knows the seat_class tag.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("seat_class", validSeatClass); err != nil {
		panic(err)
	}
	return &Validator{v: v}
}

func validSeatClass(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return s == "" || model.SeatClass(s).Valid()
}

func (cv *Validator) Validate(i interface{}) error {
	err := cv.v.Struct(i)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := make(ValidationErrors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fieldPath(fe.Namespace()), Message: describe(fe)})
	}
	return out
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be an email address"
	case "gt":
		return "must be greater than " + fe.Param()
	case "min":
		return "must have at least " + fe.Param() + " item(s)"
	case "max":
		return "must have at most " + fe.Param() + " item(s)"
	case "seat_class":
		return "must be standard, vip or bed"
	}
	return "failed " + fe.Tag()
}

// bind decodes the body into dst and validates it.  On failure the 400
// response has already been written and ok is false.
func bind(c echo.Context, dst interface{}) (ok bool, err error) {
	if err := c.Bind(dst); err != nil {
		return false, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(dst); err != nil {
		var verrs ValidationErrors
		if errors.As(err, &verrs) {
			return false, c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed", "fields": verrs})
		}
		return false, c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	return true, nil
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

func badID(c echo.Context, what string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid " + what + " id"})
}

// respondError maps service and repository errors to HTTP responses.
func respondError(c echo.Context, log *zap.Logger, err error) error {
	var re *service.ReservationError
	switch {
	case errors.As(err, &re):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":                "seat_unavailable",
			"seat_id":              re.SeatID,
			"unavailable_seat_ids": re.UnavailableSeatIDs,
		})
	case errors.Is(err, service.ErrInvalidRequest):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrTripNotFound),
		errors.Is(err, service.ErrBookingGroupNotFound),
		errors.Is(err, repository.ErrTripSeatNotFound),
		errors.Is(err, repository.ErrTicketNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": rootMessage(err)})
	case errors.Is(err, service.ErrSeatHeld),
		errors.Is(err, service.ErrSweepInProgress),
		errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	}
	log.Error("request failed", zap.String("route", c.Path()), zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

// rootMessage strips wrapping context such as "lookup <id>: ".
func rootMessage(err error) string {
	for _, sentinel := range []error{
		service.ErrTripNotFound, service.ErrBookingGroupNotFound,
		repository.ErrTripSeatNotFound, repository.ErrTicketNotFound,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}
