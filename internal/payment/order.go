// Package payment is the server side of the payment gateway: order
// creation and the checkout callbacks that settle a wizard payment.
package payment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/movie-booking/internal/logging"
)

var (
	// ErrNotConfigured is returned when no gateway credentials are set.
	ErrNotConfigured = errors.New("payment gateway is not configured")
	// ErrInvalidOrder wraps request validation failures.
	ErrInvalidOrder = errors.New("invalid order request")
)

// CreateOrderRequest is the body of POST /create-order.
type CreateOrderRequest struct {
	Amount   float64 `json:"amount" validate:"required,gt=0"`
	Currency string  `json:"currency" validate:"omitempty,len=3,alpha"`
}

// Order is the gateway order as returned by the gateway.
type Order map[string]interface{}

// ID returns the gateway order id.
func (o Order) ID() string {
	id, _ := o["id"].(string)
	return id
}

// AmountMinor returns the order amount in minor units.
func (o Order) AmountMinor() int64 {
	switch v := o["amount"].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}

// Currency returns the order currency.
func (o Order) Currency() string {
	c, _ := o["currency"].(string)
	return c
}

// OrderService opens gateway orders.  The gateway secret stays inside the
// OrderCreator.
type OrderService struct {
	orders          OrderCreator
	defaultCurrency string
	timeout         time.Duration
	validate        *validator.Validate
	now             func() time.Time
}

// NewOrderService returns a service backed by orders, which may be nil
// when the gateway is not configured.
func NewOrderService(orders OrderCreator, defaultCurrency string, timeout time.Duration) *OrderService {
	if defaultCurrency == "" {
		defaultCurrency = "INR"
	}
	return &OrderService{
		orders:          orders,
		defaultCurrency: strings.ToUpper(defaultCurrency),
		timeout:         timeout,
		validate:        validator.New(),
		now:             time.Now,
	}
}

// Configured reports whether orders can be created.
func (s *OrderService) Configured() bool { return s.orders != nil }

// Create validates req and opens an order for req.Amount whole units.
func (s *OrderService) Create(ctx context.Context, req CreateOrderRequest) (Order, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOrder, err)
	}
	if s.orders == nil {
		return nil, ErrNotConfigured
	}
	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency = s.defaultCurrency
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	data := map[string]interface{}{
		"amount":   int64(math.Round(req.Amount * 100)),
		"currency": currency,
		"receipt":  fmt.Sprintf("receipt_%d", s.now().UnixMilli()),
	}
	body, err := s.orders.CreateOrder(ctx, data)
	if err != nil {
		logging.FromContext(ctx).WithError(err).WithField("currency", currency).Error("gateway order creation failed")
		return nil, fmt.Errorf("create order: %w", err)
	}
	return Order(body), nil
}
