package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-booking/internal/booking"
	"github.com/iliyamo/movie-booking/internal/logging"
	"github.com/iliyamo/movie-booking/internal/middleware"
	"github.com/iliyamo/movie-booking/internal/model"
	"github.com/iliyamo/movie-booking/internal/payment"
)

// ----- DTOs -----

type openWizardReq struct {
	MovieID int64 `json:"movie_id"`
}
type selectShowReq struct {
	Date string `json:"date"`
	Time string `json:"time"`
}
type paymentSuccessReq struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}
type paymentFailureReq struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
}

// wizardView is the rendered wizard.  Showtimes and the seat grid are
// included so clients need no copy of the fixed offer.
type wizardView struct {
	Open      bool                 `json:"open"`
	Movie     *model.Movie         `json:"movie,omitempty"`
	Step      string               `json:"step"`
	Show      *model.Showtime      `json:"show"`
	Seats     []string             `json:"seats"`
	Total     int                  `json:"total"`
	CanNext   bool                 `json:"can_next"`
	CanBack   bool                 `json:"can_back"`
	Message   string               `json:"message,omitempty"`
	Booking   *model.BookingRecord `json:"booking,omitempty"`
	Showtimes []model.Showtime     `json:"showtimes"`
	SeatGrid  []string             `json:"seat_grid"`
	Columns   int                  `json:"seat_columns"`
}

func viewOf(s booking.Snapshot) wizardView {
	v := wizardView{
		Open:      s.Open,
		Step:      s.State.Step.String(),
		Show:      s.State.Show,
		Seats:     s.State.Seats,
		Total:     s.State.Total(),
		CanNext:   s.Open && s.State.CanNext(),
		CanBack:   s.Open && s.State.CanBack(),
		Message:   s.Message,
		Booking:   s.Booking,
		Showtimes: booking.Showtimes,
		SeatGrid:  booking.SeatLabels(),
		Columns:   booking.SeatColumns,
	}
	if s.Open {
		m := s.Movie
		v.Movie = &m
	}
	if v.Seats == nil {
		v.Seats = []string{}
	}
	return v
}

// wizardError maps wizard errors; snapshot is returned alongside so the
// client can re-render.
func wizardError(c echo.Context, snap booking.Snapshot, err error) error {
	status := http.StatusConflict
	switch {
	case errors.Is(err, booking.ErrUnknownSeat), errors.Is(err, booking.ErrUnknownShowtime):
		status = http.StatusBadRequest
	case errors.Is(err, booking.ErrSignInRequired):
		status = http.StatusUnauthorized
	case errors.Is(err, booking.ErrPaymentInit):
		status = http.StatusBadGateway
	}
	msg := err.Error()
	if snap.Message != "" {
		msg = snap.Message
	}
	return c.JSON(status, echo.Map{"error": msg, "wizard": viewOf(snap)})
}

// OpenWizard starts a booking run for a catalog movie.
func (h *SessionHandler) OpenWizard(c echo.Context) error {
	s, ok, err := h.load(c)
	if !ok {
		return err
	}
	var req openWizardReq
	if err := c.Bind(&req); err != nil || req.MovieID <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "movie_id required"})
	}
	movie, err := h.Cat.Movie(c.Request().Context(), req.MovieID)
	if err != nil {
		return catalogError(c, err)
	}
	return c.JSON(http.StatusOK, viewOf(s.Wizard.Open(movie)))
}

// ViewWizard returns the wizard as it is.
func (h *SessionHandler) ViewWizard(c echo.Context) error {
	s, ok, err := h.load(c)
	if !ok {
		return err
	}
	return c.JSON(http.StatusOK, viewOf(s.Wizard.Snapshot()))
}

// DismissWizard closes the wizard and drops the selection.
func (h *SessionHandler) DismissWizard(c echo.Context) error {
	s, ok, err := h.load(c)
	if !ok {
		return err
	}
	s.Wizard.Close()
	return c.JSON(http.StatusOK, viewOf(s.Wizard.Snapshot()))
}

func (h *SessionHandler) SelectShow(c echo.Context) error {
	s, ok, err := h.load(c)
	if !ok {
		return err
	}
	var req selectShowReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	snap, err := s.Wizard.SelectShow(model.Showtime{Date: req.Date, Time: req.Time})
	if err != nil {
		return wizardError(c, snap, err)
	}
	return c.JSON(http.StatusOK, viewOf(snap))
}

func (h *SessionHandler) ToggleSeat(c echo.Context) error {
	s, ok, err := h.load(c)
	if !ok {
		return err
	}
	snap, err := s.Wizard.ToggleSeat(strings.ToUpper(c.Param("seat")))
	if err != nil {
		return wizardError(c, snap, err)
	}
	return c.JSON(http.StatusOK, viewOf(snap))
}

// Next advances; a disabled Next answers 409 with the unchanged view.
func (h *SessionHandler) Next(c echo.Context) error {
	return h.step(c, (*booking.Wizard).Next)
}

func (h *SessionHandler) Back(c echo.Context) error {
	return h.step(c, (*booking.Wizard).Back)
}

func (h *SessionHandler) step(c echo.Context, move func(*booking.Wizard) (booking.Snapshot, bool, error)) error {
	s, ok, err := h.load(c)
	if !ok {
		return err
	}
	snap, moved, err := move(s.Wizard)
	if err == nil && !moved {
		err = booking.ErrNotAllowed
	}
	if err != nil {
		return wizardError(c, snap, err)
	}
	return c.JSON(http.StatusOK, viewOf(snap))
}

// Pay creates the gateway order and returns the checkout the client opens.
// The visitor must be signed in.
func (h *SessionHandler) Pay(c echo.Context) error {
	s, ok, err := h.load(c)
	if !ok {
		return err
	}
	order, err := s.Wizard.Pay(c.Request().Context(), middleware.IdentityFrom(c))
	if err != nil {
		if errors.Is(err, booking.ErrPaymentInit) {
			logging.FromContext(c.Request().Context()).WithError(err).Warn("payment init failed")
		}
		return wizardError(c, s.Wizard.Snapshot(), err)
	}
	checkout, found := h.Broker.Lookup(s.ID, order.ID)
	if !found {
		// already settled or expired between Pay and Lookup
		return c.JSON(http.StatusConflict, echo.Map{"error": "checkout no longer open", "wizard": viewOf(s.Wizard.Snapshot())})
	}
	return c.JSON(http.StatusOK, echo.Map{"wizard": viewOf(s.Wizard.Snapshot()), "checkout": checkout})
}

// PaymentSuccess is the client's report of a completed gateway checkout.
// Only checkouts opened by this session can be settled through it.
func (h *SessionHandler) PaymentSuccess(c echo.Context) error {
	s, ok, err := h.load(c)
	if !ok {
		return err
	}
	var req paymentSuccessReq
	if err := c.Bind(&req); err != nil || req.OrderID == "" || req.PaymentID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "order and payment ids required"})
	}
	switch err := h.Broker.Succeed(s.ID, req.OrderID, req.PaymentID, req.Signature); {
	case errors.Is(err, payment.ErrUnknownCheckout):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, payment.ErrBadSignature):
		logging.FromContext(c.Request().Context()).WithField("order_id", req.OrderID).Warn("payment signature mismatch")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case err != nil:
		return err
	}
	return c.JSON(http.StatusOK, viewOf(s.Wizard.Snapshot()))
}

// PaymentFailure is the client's report of a failed or dismissed checkout.
func (h *SessionHandler) PaymentFailure(c echo.Context) error {
	s, ok, err := h.load(c)
	if !ok {
		return err
	}
	var req paymentFailureReq
	if err := c.Bind(&req); err != nil || req.OrderID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "order_id required"})
	}
	if req.Reason == "" {
		req.Reason = "Payment cancelled"
	}
	if err := h.Broker.Fail(s.ID, req.OrderID, req.Reason); err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, viewOf(s.Wizard.Snapshot()))
}
