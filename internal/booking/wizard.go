package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/iliyamo/movie-booking/internal/model"
)

// AutoCloseDelay is how long a confirmed wizard stays visible.
const AutoCloseDelay = 2 * time.Second

// Messages surfaced to the visitor.
const (
	MsgSignInRequired = "Please sign in before completing your booking."
	MsgPaymentInit    = "Payment initialization failed."
	msgPaymentFailed  = "Payment failed: "

	checkoutName   = "Movie Booking App"
	fallbackName   = "Movie Fan"
	fallbackEmail  = "user@example.com"
	defaultContact = "9999999999"
)

var (
	ErrClosed          = errors.New("booking wizard is not open")
	ErrNotAtPayment    = errors.New("payment is only available at the payment step")
	ErrSignInRequired  = errors.New("sign in required")
	ErrPaymentInit     = errors.New("payment initialization failed")
	ErrUnknownSeat     = errors.New("unknown seat")
	ErrUnknownShowtime = errors.New("unknown showtime")
	ErrNotAllowed      = errors.New("action not available at this step")
)

// Snapshot is a consistent read of a wizard.
type Snapshot struct {
	Open    bool
	Movie   model.Movie
	State   State
	Message string
	Booking *model.BookingRecord
}

// Wizard drives one visitor through showtime, seats and payment for one
// movie at a time.  All methods are safe for concurrent use; the gateway is
// never called with the lock held.
type Wizard struct {
	mu      sync.Mutex
	store   *Store
	gateway Gateway
	owner   string

	open    bool
	run     uint64
	movie   model.Movie
	state   State
	message string
	booking *model.BookingRecord

	afterFunc func(d time.Duration, f func())
}

// NewWizard returns a closed wizard that records bookings in store and
// collects payments through gateway.
func NewWizard(store *Store, gateway Gateway) *Wizard {
	return &Wizard{
		store:   store,
		gateway: gateway,
		afterFunc: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
	}
}

// SetOwner sets the owner id passed with every checkout request.
func (w *Wizard) SetOwner(owner string) {
	w.mu.Lock()
	w.owner = owner
	w.mu.Unlock()
}

// SetAfterFunc replaces the timer used for the auto-close delay.
func (w *Wizard) SetAfterFunc(f func(d time.Duration, fn func())) {
	w.mu.Lock()
	w.afterFunc = f
	w.mu.Unlock()
}

// Open starts a fresh run for movie.  Nothing from a previous run is kept.
func (w *Wizard) Open(movie model.Movie) Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.run++
	w.open = true
	w.movie = movie
	w.state = Initial()
	w.message = ""
	w.booking = nil
	return w.snapshotLocked()
}

// Close dismisses the wizard.  The in-progress selection is discarded.
func (w *Wizard) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closeLocked()
}

func (w *Wizard) closeLocked() {
	w.run++
	w.open = false
	w.state = Initial()
	w.message = ""
	w.booking = nil
}

// Snapshot returns the current wizard view.
func (w *Wizard) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

func (w *Wizard) snapshotLocked() Snapshot {
	snap := Snapshot{
		Open:    w.open,
		Movie:   w.movie,
		State:   w.state.clone(),
		Message: w.message,
	}
	if w.booking != nil {
		rec := w.booking.Clone()
		snap.Booking = &rec
	}
	return snap
}

// apply runs a pure transition against the current state.
func (w *Wizard) apply(t func(State) (State, bool)) (Snapshot, bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.open {
		return w.snapshotLocked(), false, ErrClosed
	}
	next, ok := t(w.state)
	if ok {
		w.state = next
		w.message = ""
	}
	return w.snapshotLocked(), ok, nil
}

// SelectShow picks one of the offered showtimes.
func (w *Wizard) SelectShow(show model.Showtime) (Snapshot, error) {
	if !IsShowtime(show) {
		return w.Snapshot(), ErrUnknownShowtime
	}
	snap, ok, err := w.apply(func(s State) (State, bool) { return s.SelectShow(show) })
	if err == nil && !ok {
		err = ErrNotAllowed
	}
	return snap, err
}

// ToggleSeat selects or deselects seat.
func (w *Wizard) ToggleSeat(seat string) (Snapshot, error) {
	if !IsSeat(seat) {
		return w.Snapshot(), fmt.Errorf("%w: %q", ErrUnknownSeat, seat)
	}
	snap, ok, err := w.apply(func(s State) (State, bool) { return s.ToggleSeat(seat) })
	if err == nil && !ok {
		err = ErrNotAllowed
	}
	return snap, err
}

// Next advances when the current step's guard holds.  The boolean is false
// when the action was disabled.
func (w *Wizard) Next() (Snapshot, bool, error) {
	return w.apply(State.Next)
}

// Back returns to the previous step when available.
func (w *Wizard) Back() (Snapshot, bool, error) {
	return w.apply(State.Back)
}

// Pay opens a payment order for the current selection and starts the
// gateway checkout.  who must be the signed-in visitor; a nil identity
// stops before any order is created.  On failure the wizard stays at the
// payment step and the visitor-facing message is set.
func (w *Wizard) Pay(ctx context.Context, who *model.Identity) (OrderHandle, error) {
	w.mu.Lock()
	if !w.open {
		w.mu.Unlock()
		return OrderHandle{}, ErrClosed
	}
	if w.state.Step != StepPayment {
		w.mu.Unlock()
		return OrderHandle{}, ErrNotAtPayment
	}
	if who == nil {
		w.message = MsgSignInRequired
		w.mu.Unlock()
		return OrderHandle{}, ErrSignInRequired
	}
	run := w.run
	owner := w.owner
	movie := w.movie
	show := *w.state.Show
	seats := append([]string(nil), w.state.Seats...)
	total := w.state.Total()
	w.message = ""
	w.mu.Unlock()

	order, err := w.gateway.CreateOrder(ctx, total, Currency)
	if err != nil {
		w.setMessage(run, MsgPaymentInit)
		return OrderHandle{}, fmt.Errorf("%w: %v", ErrPaymentInit, err)
	}

	req := CheckoutRequest{
		Owner:       owner,
		Order:       order,
		Amount:      int64(total) * 100,
		Currency:    Currency,
		Name:        checkoutName,
		Description: "Booking for " + movie.Title,
		Prefill: Prefill{
			Name:    orDefault(who.DisplayName, fallbackName),
			Email:   orDefault(who.Email, fallbackEmail),
			Contact: defaultContact,
		},
	}
	w.gateway.OpenCheckout(ctx, req,
		func(PaymentReceipt) { w.paymentSucceeded(run, movie, show, seats, total) },
		func(reason string) { w.setMessage(run, msgPaymentFailed+reason) },
	)
	return order, nil
}

// paymentSucceeded records the paid booking.  The booking is stored even
// when the visitor dismissed or reopened the wizard meanwhile, because the
// charge went through; only the run that paid moves to Confirmed.
func (w *Wizard) paymentSucceeded(run uint64, movie model.Movie, show model.Showtime, seats []string, total int) {
	rec := w.store.ConfirmBooking(movie, show, seats, total)

	w.mu.Lock()
	if w.run != run || !w.open || w.state.Step == StepConfirmed {
		w.mu.Unlock()
		return
	}
	next, ok := w.state.Confirm()
	if !ok {
		// visitor stepped back while the checkout was open
		next = State{Step: StepConfirmed, Show: &show, Seats: seats}
	}
	w.state = next
	w.booking = &rec
	w.message = ""
	after := w.afterFunc
	w.mu.Unlock()

	after(AutoCloseDelay, func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if w.run == run {
			w.closeLocked()
		}
	})
}

func (w *Wizard) setMessage(run uint64, msg string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.run == run {
		w.message = msg
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
