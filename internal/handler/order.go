package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-booking/internal/payment"
)

// OrderHandler serves POST /create-order.
type OrderHandler struct {
	Orders *payment.OrderService
}

func NewOrderHandler(orders *payment.OrderService) *OrderHandler {
	return &OrderHandler{Orders: orders}
}

// CreateOrder opens a gateway order for {amount, currency}.  The gateway
// response is passed through unchanged under "order".
func (h *OrderHandler) CreateOrder(c echo.Context) error {
	var req payment.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid body"})
	}
	order, err := h.Orders.Create(c.Request().Context(), req)
	switch {
	case errors.Is(err, payment.ErrInvalidOrder):
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "amount must be a positive number"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"success": false,
			"message": "Server error",
			"error":   err.Error(),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "order": order})
}
