package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-booking/internal/handler"
	"github.com/iliyamo/movie-booking/internal/middleware"
)

// RegisterRoutes registers the liveness probe.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the identity routes.  Sign-up, sign-in and
// refresh need no token; /v1/me requires one.  verify turns bearer tokens
// into identities.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, verify middleware.TokenVerifier) {
	g := e.Group("/v1/auth")
	g.POST("/sign-up", a.SignUp)
	g.POST("/sign-in", a.SignIn)
	g.POST("/refresh", a.Refresh)
	// sign-out accepts either a refresh token in the body or a bearer token
	g.POST("/sign-out", a.SignOut, middleware.BearerIdentity(verify))

	e.GET("/v1/me", a.Me, middleware.BearerIdentity(verify), middleware.RequireIdentity())
}

// RegisterCatalog registers the public catalog routes behind the response
// cache.
func RegisterCatalog(e *echo.Echo, h *handler.CatalogHandler, cache echo.MiddlewareFunc) {
	g := e.Group("/v1", cache)
	g.GET("/movies", h.ListMovies)
	g.GET("/movies/:id", h.GetMovie)
	g.GET("/filters", h.Filters)
}

// RegisterOrders registers POST /create-order behind the rate limiter.
func RegisterOrders(e *echo.Echo, h *handler.OrderHandler, limiter echo.MiddlewareFunc) {
	e.POST("/create-order", h.CreateOrder, limiter)
}

// RegisterSessions registers the per-visitor routes.  Identity is
// optional on every route; the wizard's pay action rejects anonymous
// visitors itself.
func RegisterSessions(e *echo.Echo, h *handler.SessionHandler, verify middleware.TokenVerifier) {
	e.POST("/v1/sessions", h.Start, middleware.BearerIdentity(verify))

	g := e.Group("/v1/sessions/:sid", middleware.BearerIdentity(verify))
	g.DELETE("", h.End)
	g.GET("/movies", h.Feed)

	g.POST("/wizard", h.OpenWizard)
	g.GET("/wizard", h.ViewWizard)
	g.DELETE("/wizard", h.DismissWizard)
	g.POST("/wizard/show", h.SelectShow)
	g.POST("/wizard/seats/:seat", h.ToggleSeat)
	g.POST("/wizard/next", h.Next)
	g.POST("/wizard/back", h.Back)
	g.POST("/wizard/pay", h.Pay)
	g.POST("/wizard/payment/success", h.PaymentSuccess)
	g.POST("/wizard/payment/failure", h.PaymentFailure)

	g.GET("/bookings", h.ListBookings)
	g.DELETE("/bookings", h.ClearBookings)
	g.DELETE("/bookings/:id", h.CancelBooking)
	g.POST("/bookings/:id/complete", h.CompleteBooking)
	g.GET("/bookings/:id/ticket.png", h.Ticket)
}
