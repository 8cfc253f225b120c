package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-booking/internal/model"
	"github.com/iliyamo/movie-booking/internal/utils"
)

const ticketSize = 256

// ListBookings returns {active, history}.
func (h *SessionHandler) ListBookings(c echo.Context) error {
	s, ok, err := h.load(c)
	if !ok {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"active": s.Store.Active(), "history": s.Store.History()})
}

// ClearBookings empties both lists.
func (h *SessionHandler) ClearBookings(c echo.Context) error {
	s, ok, err := h.load(c)
	if !ok {
		return err
	}
	s.Store.ClearAllBookings()
	return c.NoContent(http.StatusNoContent)
}

// CancelBooking moves an active booking to history as cancelled.  Unknown
// ids are a no-op, like the store.
func (h *SessionHandler) CancelBooking(c echo.Context) error {
	s, ok, err := h.load(c)
	if !ok {
		return err
	}
	s.Store.CancelBooking(c.Param("id"))
	return c.JSON(http.StatusOK, echo.Map{"active": s.Store.Active(), "history": s.Store.History()})
}

// CompleteBooking moves an active booking to history as completed.
func (h *SessionHandler) CompleteBooking(c echo.Context) error {
	s, ok, err := h.load(c)
	if !ok {
		return err
	}
	s.Store.MoveBookingToHistory(c.Param("id"))
	return c.JSON(http.StatusOK, echo.Map{"active": s.Store.Active(), "history": s.Store.History()})
}

// Ticket renders the QR code of an active booking.
func (h *SessionHandler) Ticket(c echo.Context) error {
	s, ok, err := h.load(c)
	if !ok {
		return err
	}
	rec, found := s.Store.Get(c.Param("id"))
	if !found || rec.Status != model.BookingActive {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	}
	png, err := utils.GenerateQRCodePNG(ticketContent(rec), ticketSize)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "qr generation failed"})
	}
	return c.Blob(http.StatusOK, "image/png", png)
}

func ticketContent(rec model.BookingRecord) string {
	return "booking:" + rec.ID + "|movie:" + rec.Title + "|show:" + rec.Show.Date + " " + rec.Show.Time
}
