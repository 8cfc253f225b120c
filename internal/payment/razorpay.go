package payment

import (
	"context"

	razorpay "github.com/razorpay/razorpay-go"
)

// OrderCreator opens an order with the payment gateway.  data uses the
// gateway's field names (amount in minor units, currency, receipt).
type OrderCreator interface {
	CreateOrder(ctx context.Context, data map[string]interface{}) (map[string]interface{}, error)
}

// RazorpayOrders creates orders through the Razorpay REST API.
type RazorpayOrders struct {
	client *razorpay.Client
}

// NewRazorpayOrders returns nil when either credential is missing.
func NewRazorpayOrders(keyID, keySecret string) *RazorpayOrders {
	if keyID == "" || keySecret == "" {
		return nil
	}
	return &RazorpayOrders{client: razorpay.NewClient(keyID, keySecret)}
}

// CreateOrder calls the blocking SDK on its own goroutine so ctx can bound
// the wait.
func (r *RazorpayOrders) CreateOrder(ctx context.Context, data map[string]interface{}) (map[string]interface{}, error) {
	type result struct {
		body map[string]interface{}
		err  error
	}
	done := make(chan result, 1)
	go func() {
		body, err := r.client.Order.Create(data, nil)
		done <- result{body, err}
	}()
	select {
	case res := <-done:
		return res.body, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
