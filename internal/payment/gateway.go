package payment

import (
	"context"

	"github.com/iliyamo/movie-booking/internal/booking"
)

// Gateway is the wizard's payment port backed by the OrderService and a
// CheckoutBroker.
type Gateway struct {
	orders *OrderService
	broker *CheckoutBroker
}

var _ booking.Gateway = (*Gateway)(nil)

func NewGateway(orders *OrderService, broker *CheckoutBroker) *Gateway {
	return &Gateway{orders: orders, broker: broker}
}

func (g *Gateway) CreateOrder(ctx context.Context, amount int, currency string) (booking.OrderHandle, error) {
	order, err := g.orders.Create(ctx, CreateOrderRequest{Amount: float64(amount), Currency: currency})
	if err != nil {
		return booking.OrderHandle{}, err
	}
	return booking.OrderHandle{ID: order.ID(), Amount: order.AmountMinor(), Currency: order.Currency()}, nil
}

func (g *Gateway) OpenCheckout(_ context.Context, req booking.CheckoutRequest, onSuccess func(booking.PaymentReceipt), onFailure func(string)) {
	g.broker.Open(req, onSuccess, onFailure)
}

// Broker exposes the checkout broker for the callback endpoints.
func (g *Gateway) Broker() *CheckoutBroker { return g.broker }
