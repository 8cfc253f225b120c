package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/iliyamo/movie-booking/internal/booking"
)

var (
	// ErrUnknownCheckout is returned for orders with no open checkout.
	ErrUnknownCheckout = errors.New("no open checkout for order")
	// ErrBadSignature is returned when a success callback does not verify.
	ErrBadSignature = errors.New("payment signature mismatch")
)

// Checkout is an open gateway checkout as presented to the client.
type Checkout struct {
	KeyID       string          `json:"key"`
	OrderID     string          `json:"order_id"`
	Amount      int64           `json:"amount"`
	Currency    string          `json:"currency"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Prefill     booking.Prefill `json:"prefill"`
	OpenedAt    time.Time       `json:"opened_at"`
}

type pendingCheckout struct {
	owner     string
	checkout  Checkout
	onSuccess func(booking.PaymentReceipt)
	onFailure func(string)
}

// CheckoutBroker parks checkout callbacks by order id until the client
// reports the gateway result.  Each checkout settles at most once.
type CheckoutBroker struct {
	keyID  string
	secret string
	now    func() time.Time

	mu      sync.Mutex
	pending map[string]*pendingCheckout
}

func NewCheckoutBroker(keyID, secret string) *CheckoutBroker {
	return &CheckoutBroker{
		keyID:   keyID,
		secret:  secret,
		now:     time.Now,
		pending: map[string]*pendingCheckout{},
	}
}

// Open registers a checkout for req.Owner.  Opening the same order again
// replaces the earlier callbacks.
func (b *CheckoutBroker) Open(req booking.CheckoutRequest, onSuccess func(booking.PaymentReceipt), onFailure func(string)) Checkout {
	co := Checkout{
		KeyID:       b.keyID,
		OrderID:     req.Order.ID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Name:        req.Name,
		Description: req.Description,
		Prefill:     req.Prefill,
		OpenedAt:    b.now(),
	}
	b.mu.Lock()
	b.pending[co.OrderID] = &pendingCheckout{owner: req.Owner, checkout: co, onSuccess: onSuccess, onFailure: onFailure}
	b.mu.Unlock()
	return co
}

// pendingFor returns the checkout of orderID when owner opened it.
// Callers hold b.mu.
func (b *CheckoutBroker) pendingFor(owner, orderID string) (*pendingCheckout, bool) {
	p, ok := b.pending[orderID]
	if !ok || p.owner != owner {
		return nil, false
	}
	return p, true
}

// Lookup returns the checkout owner has open for orderID.
func (b *CheckoutBroker) Lookup(owner, orderID string) (Checkout, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.pendingFor(owner, orderID)
	if !ok {
		return Checkout{}, false
	}
	return p.checkout, true
}

// Succeed verifies the gateway signature and runs the success callback.
// Checkouts of other owners are reported as unknown.
func (b *CheckoutBroker) Succeed(owner, orderID, paymentID, signature string) error {
	b.mu.Lock()
	p, ok := b.pendingFor(owner, orderID)
	if !ok {
		b.mu.Unlock()
		return ErrUnknownCheckout
	}
	if !VerifySignature(b.secret, orderID, paymentID, signature) {
		b.mu.Unlock()
		return ErrBadSignature
	}
	delete(b.pending, orderID)
	b.mu.Unlock()

	p.onSuccess(booking.PaymentReceipt{PaymentID: paymentID, OrderID: orderID})
	return nil
}

// Fail runs the failure callback with reason.  Like Succeed it only
// settles checkouts opened by owner.
func (b *CheckoutBroker) Fail(owner, orderID, reason string) error {
	b.mu.Lock()
	p, ok := b.pendingFor(owner, orderID)
	if ok {
		delete(b.pending, orderID)
	}
	b.mu.Unlock()
	if !ok {
		return ErrUnknownCheckout
	}
	p.onFailure(reason)
	return nil
}

// Expire fails and forgets checkouts opened more than maxAge ago.
func (b *CheckoutBroker) Expire(maxAge time.Duration) int {
	cutoff := b.now().Add(-maxAge)
	var stale []*pendingCheckout
	b.mu.Lock()
	for id, p := range b.pending {
		if p.checkout.OpenedAt.Before(cutoff) {
			stale = append(stale, p)
			delete(b.pending, id)
		}
	}
	b.mu.Unlock()
	for _, p := range stale {
		p.onFailure("checkout expired")
	}
	return len(stale)
}

// Sign returns the gateway signature for a payment.
func Sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks signature in constant time.
func VerifySignature(secret, orderID, paymentID, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	return hmac.Equal([]byte(Sign(secret, orderID, paymentID)), []byte(signature))
}
