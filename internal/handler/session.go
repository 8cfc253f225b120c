package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-booking/internal/catalog"
	"github.com/iliyamo/movie-booking/internal/middleware"
	"github.com/iliyamo/movie-booking/internal/payment"
	"github.com/iliyamo/movie-booking/internal/session"
)

// SessionHandler serves everything under /v1/sessions/:sid: the feed, the
// booking wizard and the booking store of one visitor.
type SessionHandler struct {
	Sessions *session.Manager
	Cat      *catalog.Catalog
	Broker   *payment.CheckoutBroker
}

func NewSessionHandler(sessions *session.Manager, cat *catalog.Catalog, broker *payment.CheckoutBroker) *SessionHandler {
	if sessions == nil || cat == nil || broker == nil {
		panic("nil dependency passed to NewSessionHandler")
	}
	return &SessionHandler{Sessions: sessions, Cat: cat, Broker: broker}
}

// load resolves :sid and remembers the bearer identity on the session.
// It writes the 404 itself; callers return when ok is false.
func (h *SessionHandler) load(c echo.Context) (*session.Session, bool, error) {
	s, err := h.Sessions.Get(c.Param("sid"))
	if errors.Is(err, session.ErrNotFound) {
		return nil, false, c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
	}
	if err != nil {
		return nil, false, err
	}
	if who := middleware.IdentityFrom(c); who != nil {
		s.SetIdentity(who)
	}
	return s, true, nil
}

// Start creates a session.
func (h *SessionHandler) Start(c echo.Context) error {
	s := h.Sessions.Create()
	if who := middleware.IdentityFrom(c); who != nil {
		s.SetIdentity(who)
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": s.ID, "created_at": s.CreatedAt})
}

// End tears the session down.
func (h *SessionHandler) End(c echo.Context) error {
	if err := h.Sessions.End(c.Param("sid")); err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Feed reloads the session's listing for the query string and returns the
// home view.  A load superseded by a newer one reports applied=false and
// the newer state.
func (h *SessionHandler) Feed(c echo.Context) error {
	s, ok, err := h.load(c)
	if !ok {
		return err
	}
	state, applied := s.Feed.Load(c.Request().Context(), queryFrom(c))
	return c.JSON(http.StatusOK, echo.Map{
		"home":    catalog.Home(state),
		"genres":  state.GenreNames,
		"applied": applied,
	})
}
