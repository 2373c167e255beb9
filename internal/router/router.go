// Package router registers the HTTP routes and the middleware each
// group needs.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-seat-reservation/internal/handler"
	"github.com/iliyamo/bus-seat-reservation/internal/middleware"
)

// Handlers bundles everything Register mounts.
type Handlers struct {
	Health   echo.HandlerFunc
	Bookings *handler.BookingHandler
	Payments *handler.PaymentHandler
	SeatMap  *handler.SeatMapHandler
	Admin    *handler.AdminHandler
}

// Middleware carries the optional Redis-backed middleware.  Nil fields
// are skipped.
type Middleware struct {
	RateLimit echo.MiddlewareFunc
	Cache     echo.MiddlewareFunc
}

// Register mounts every route on e.
//
//	GET    /healthz
//	GET    /v1/trips/:id/seats               public, cached
//	POST   /v1/bookings                      CUSTOMER, rate limited
//	GET    /v1/bookings/:group               CUSTOMER
//	POST   /v1/bookings/:group/confirm       PAYMENT
//	POST   /v1/bookings/:group/fail          PAYMENT
//	POST   /v1/admin/vehicles/:id/seats      OPERATOR
//	POST   /v1/admin/trips/:id/schedule      OPERATOR
//	POST   /v1/admin/trip-seats/:id/lock     OPERATOR
//	DELETE /v1/admin/trip-seats/:id/lock     OPERATOR
//	GET    /v1/admin/trips/:id/integrity     OPERATOR
//	POST   /v1/admin/sweeps                  OPERATOR
func Register(e *echo.Echo, h Handlers, mw Middleware, jwtSecret string) {
	e.GET("/healthz", h.Health)

	e.GET("/v1/trips/:id/seats", h.SeatMap.List, optional(mw.Cache)...)

	auth := middleware.JWTAuth(jwtSecret)

	customer := e.Group("/v1/bookings", auth)
	customer.POST("", h.Bookings.Create,
		append([]echo.MiddlewareFunc{middleware.RequireRole(middleware.RoleCustomer)}, optional(mw.RateLimit)...)...)
	customer.GET("/:group", h.Bookings.Get, middleware.RequireRole(middleware.RoleCustomer, middleware.RoleOperator))

	pay := middleware.RequireRole(middleware.RolePayment)
	customer.POST("/:group/confirm", h.Payments.Confirm, pay)
	customer.POST("/:group/fail", h.Payments.Fail, pay)

	admin := e.Group("/v1/admin", auth, middleware.RequireRole(middleware.RoleOperator))
	admin.POST("/vehicles/:id/seats", h.Admin.RegisterSeats)
	admin.POST("/trips/:id/schedule", h.Admin.Schedule)
	admin.POST("/trip-seats/:id/lock", h.Admin.Lock)
	admin.DELETE("/trip-seats/:id/lock", h.Admin.Unlock)
	admin.GET("/trips/:id/integrity", h.Admin.Integrity)
	admin.POST("/sweeps", h.Admin.Sweep)
}

func optional(m echo.MiddlewareFunc) []echo.MiddlewareFunc {
	if m == nil {
		return nil
	}
	return []echo.MiddlewareFunc{m}
}
