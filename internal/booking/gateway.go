package booking

import "context"

// Currency used by the wizard when it opens an order.
const Currency = "USD"

// OrderHandle identifies a payment order opened with the gateway.
type OrderHandle struct {
	ID       string
	Amount   int64 // minor units
	Currency string
}

// Prefill carries the identity shown on the gateway checkout form.
type Prefill struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Contact string `json:"contact"`
}

// CheckoutRequest is everything the gateway checkout needs to collect a
// payment for an order.  Owner names the wizard that opened it; results
// are only accepted from the same owner.
type CheckoutRequest struct {
	Owner       string
	Order       OrderHandle
	Amount      int64 // minor units
	Currency    string
	Name        string
	Description string
	Prefill     Prefill
}

// PaymentReceipt is handed to the success callback of a checkout.
type PaymentReceipt struct {
	PaymentID string
	OrderID   string
}

// Gateway is the payment port used by the wizard.  CreateOrder opens an
// order for amount whole currency units; OpenCheckout starts collecting
// the payment and later calls exactly one of onSuccess or onFailure.
type Gateway interface {
	CreateOrder(ctx context.Context, amount int, currency string) (OrderHandle, error)
	OpenCheckout(ctx context.Context, req CheckoutRequest, onSuccess func(PaymentReceipt), onFailure func(reason string))
}
