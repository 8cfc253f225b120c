package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-booking/internal/model"
)

type fakeGateway struct {
	orderErr   error
	orders     []int
	checkouts  []CheckoutRequest
	onSuccess  func(PaymentReceipt)
	onFailure  func(string)
	settleWith string // "", "success" or a failure reason
}

func (g *fakeGateway) CreateOrder(_ context.Context, amount int, currency string) (OrderHandle, error) {
	g.orders = append(g.orders, amount)
	if g.orderErr != nil {
		return OrderHandle{}, g.orderErr
	}
	return OrderHandle{ID: "order_1", Amount: int64(amount) * 100, Currency: currency}, nil
}

func (g *fakeGateway) OpenCheckout(_ context.Context, req CheckoutRequest, onSuccess func(PaymentReceipt), onFailure func(string)) {
	g.checkouts = append(g.checkouts, req)
	g.onSuccess, g.onFailure = onSuccess, onFailure
	switch g.settleWith {
	case "":
	case "success":
		onSuccess(PaymentReceipt{PaymentID: "pay_1", OrderID: req.Order.ID})
	default:
		onFailure(g.settleWith)
	}
}

type manualTimer struct {
	delays []time.Duration
	fns    []func()
}

func (m *manualTimer) after(d time.Duration, f func()) {
	m.delays = append(m.delays, d)
	m.fns = append(m.fns, f)
}

func (m *manualTimer) fire() {
	for _, f := range m.fns {
		f()
	}
}

var signedIn = &model.Identity{UserID: "1", DisplayName: "Ada", Email: "ada@example.com"}

func newTestWizard(gw Gateway) (*Wizard, *Store, *manualTimer) {
	store := newTestStore()
	w := NewWizard(store, gw)
	timer := &manualTimer{}
	w.SetAfterFunc(timer.after)
	return w, store, timer
}

func walkToPayment(t *testing.T, w *Wizard, seats ...string) {
	t.Helper()
	w.Open(testMovie)
	_, err := w.SelectShow(model.Showtime{Time: "10:00 AM", Date: "Fri, Oct 25"})
	require.NoError(t, err)
	_, ok, err := w.Next()
	require.NoError(t, err)
	require.True(t, ok)
	for _, s := range seats {
		_, err = w.ToggleSeat(s)
		require.NoError(t, err)
	}
	snap, ok, err := w.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, StepPayment, snap.State.Step)
}

func TestWizardPaySuccess(t *testing.T) {
	gw := &fakeGateway{settleWith: "success"}
	w, store, timer := newTestWizard(gw)
	w.SetOwner("session-1")
	walkToPayment(t, w, "A1", "A3")

	order, err := w.Pay(context.Background(), signedIn)
	require.NoError(t, err)
	assert.Equal(t, "order_1", order.ID)
	assert.Equal(t, []int{40}, gw.orders)

	require.Len(t, gw.checkouts, 1)
	req := gw.checkouts[0]
	assert.Equal(t, "session-1", req.Owner)
	assert.Equal(t, int64(4000), req.Amount)
	assert.Equal(t, "USD", req.Currency)
	assert.Equal(t, "Movie Booking App", req.Name)
	assert.Equal(t, "Booking for Fight Club", req.Description)
	assert.Equal(t, Prefill{Name: "Ada", Email: "ada@example.com", Contact: "9999999999"}, req.Prefill)

	active := store.Active()
	require.Len(t, active, 1)
	assert.Equal(t, []string{"A1", "A3"}, active[0].Seats)
	assert.Equal(t, 40, active[0].TotalAmount)
	assert.Equal(t, model.BookingActive, active[0].Status)

	snap := w.Snapshot()
	assert.Equal(t, StepConfirmed, snap.State.Step)
	require.NotNil(t, snap.Booking)
	assert.Equal(t, active[0].ID, snap.Booking.ID)

	require.Equal(t, []time.Duration{2 * time.Second}, timer.delays)
	timer.fire()
	closed := w.Snapshot()
	assert.False(t, closed.Open)
	assert.Nil(t, closed.Booking)
	assert.Equal(t, StepSelectShow, closed.State.Step)
}

func TestWizardDismissDropsLastBooking(t *testing.T) {
	w, store, _ := newTestWizard(&fakeGateway{settleWith: "success"})
	walkToPayment(t, w, "A2")
	_, err := w.Pay(context.Background(), signedIn)
	require.NoError(t, err)
	require.NotNil(t, w.Snapshot().Booking)

	w.Close()
	assert.Nil(t, w.Snapshot().Booking)
	assert.Len(t, store.Active(), 1)
}

func TestWizardPayRequiresIdentity(t *testing.T) {
	gw := &fakeGateway{settleWith: "success"}
	w, store, _ := newTestWizard(gw)
	walkToPayment(t, w, "A1", "A3")

	_, err := w.Pay(context.Background(), nil)
	require.ErrorIs(t, err, ErrSignInRequired)

	snap := w.Snapshot()
	assert.Equal(t, StepPayment, snap.State.Step)
	assert.Equal(t, MsgSignInRequired, snap.Message)
	assert.Empty(t, gw.orders)
	assert.Empty(t, store.Active())
}

func TestWizardPayOrderFailure(t *testing.T) {
	gw := &fakeGateway{orderErr: errors.New("connection refused")}
	w, store, _ := newTestWizard(gw)
	walkToPayment(t, w, "A2")

	_, err := w.Pay(context.Background(), signedIn)
	require.ErrorIs(t, err, ErrPaymentInit)

	snap := w.Snapshot()
	assert.Equal(t, StepPayment, snap.State.Step)
	assert.Equal(t, MsgPaymentInit, snap.Message)
	assert.Empty(t, gw.checkouts)
	assert.Empty(t, store.Active())

	// retry is just paying again
	gw.orderErr = nil
	gw.settleWith = "success"
	_, err = w.Pay(context.Background(), signedIn)
	require.NoError(t, err)
	assert.Equal(t, StepConfirmed, w.Snapshot().State.Step)
}

func TestWizardGatewayFailure(t *testing.T) {
	gw := &fakeGateway{settleWith: "Card declined"}
	w, store, timer := newTestWizard(gw)
	walkToPayment(t, w, "A5")

	_, err := w.Pay(context.Background(), signedIn)
	require.NoError(t, err)

	snap := w.Snapshot()
	assert.Equal(t, StepPayment, snap.State.Step)
	assert.Equal(t, "Payment failed: Card declined", snap.Message)
	assert.Empty(t, store.Active())
	assert.Empty(t, timer.delays)
}

func TestWizardPrefillFallbacks(t *testing.T) {
	gw := &fakeGateway{}
	w, _, _ := newTestWizard(gw)
	walkToPayment(t, w, "A1")

	_, err := w.Pay(context.Background(), &model.Identity{UserID: "2"})
	require.NoError(t, err)
	require.Len(t, gw.checkouts, 1)
	assert.Equal(t, "Movie Fan", gw.checkouts[0].Prefill.Name)
	assert.Equal(t, "user@example.com", gw.checkouts[0].Prefill.Email)
}

func TestWizardLateSuccessAfterReopen(t *testing.T) {
	gw := &fakeGateway{}
	w, store, timer := newTestWizard(gw)
	walkToPayment(t, w, "A1")

	_, err := w.Pay(context.Background(), signedIn)
	require.NoError(t, err)

	other := model.Movie{ID: 13, Title: "Forrest Gump"}
	w.Open(other)
	gw.onSuccess(PaymentReceipt{PaymentID: "pay_1"})

	require.Len(t, store.Active(), 1)
	assert.Equal(t, testMovie.ID, store.Active()[0].MovieID)

	snap := w.Snapshot()
	assert.Equal(t, StepSelectShow, snap.State.Step)
	assert.Equal(t, other.ID, snap.Movie.ID)
	assert.Nil(t, snap.Booking)
	assert.Empty(t, timer.delays)
}

func TestWizardOpenResets(t *testing.T) {
	w, _, _ := newTestWizard(&fakeGateway{})
	walkToPayment(t, w, "A1", "A2")

	snap := w.Open(model.Movie{ID: 2, Title: "Other"})
	assert.True(t, snap.Open)
	assert.Equal(t, StepSelectShow, snap.State.Step)
	assert.Nil(t, snap.State.Show)
	assert.Empty(t, snap.State.Seats)
}

func TestWizardRejectsInvalidInput(t *testing.T) {
	w, _, _ := newTestWizard(&fakeGateway{})

	_, err := w.ToggleSeat("A1")
	assert.ErrorIs(t, err, ErrClosed)
	_, err = w.Pay(context.Background(), signedIn)
	assert.ErrorIs(t, err, ErrClosed)

	w.Open(testMovie)
	_, err = w.SelectShow(model.Showtime{Time: "11:00 PM", Date: "Fri, Oct 25"})
	assert.ErrorIs(t, err, ErrUnknownShowtime)
	_, err = w.ToggleSeat("Z9")
	assert.ErrorIs(t, err, ErrUnknownSeat)
	_, err = w.ToggleSeat("A1")
	assert.ErrorIs(t, err, ErrNotAllowed)
	_, err = w.Pay(context.Background(), signedIn)
	assert.ErrorIs(t, err, ErrNotAtPayment)

	_, ok, err := w.Next()
	require.NoError(t, err)
	assert.False(t, ok)
}
