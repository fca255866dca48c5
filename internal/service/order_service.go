package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"storefront/internal/domain"

	"go.uber.org/zap"
)

var (
	ErrEmptyCart             = errors.New("cart is empty")
	ErrMissingAddress        = errors.New("shipping address is required")
	ErrInvalidPaymentMethod  = errors.New("invalid payment method")
	ErrOrderPlacementFailure = errors.New("failed to place order")
)

// OrderService submits checkouts and reads order history.
type OrderService interface {
	Create(ctx context.Context, items []domain.CartItem, shippingAddress, paymentMethod string) (*domain.Order, error)
	ListMine(ctx context.Context) ([]domain.Order, error)
}

type orderService struct {
	gw     Doer
	auth   AuthService
	logger *zap.Logger
}

// NewOrderService creates an order service.
func NewOrderService(gw Doer, auth AuthService, logger *zap.Logger) OrderService {
	return &orderService{gw: gw, auth: auth, logger: logger}
}

// orderPayload is the wire shape of POST /orders.
type orderPayload struct {
	CartItems       []domain.OrderItem `json:"cartItems"`
	ShippingAddress string             `json:"shippingAddress"`
	PaymentMethod   string             `json:"paymentMethod"`
	TotalPrice      float64            `json:"totalPrice"`
}

// Create validates and submits one order as a single request. Unit prices
// are frozen here, at submission time; everywhere else pricing is read live
// from the product. On any error the caller's cart is untouched and a retry
// is safe.
func (s *orderService) Create(ctx context.Context, items []domain.CartItem, shippingAddress, paymentMethod string) (*domain.Order, error) {
	if s.auth.Current() == nil {
		return nil, ErrNotAuthenticated
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}
	if strings.TrimSpace(shippingAddress) == "" {
		return nil, ErrMissingAddress
	}
	if !domain.ValidPaymentMethod(paymentMethod) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, paymentMethod)
	}

	lines := make([]domain.OrderItem, 0, len(items))
	for _, item := range items {
		lines = append(lines, domain.OrderItem{
			ProductID: item.Product.ID,
			Quantity:  item.Quantity,
			Price:     item.Product.Price,
		})
	}

	payload := orderPayload{
		CartItems:       lines,
		ShippingAddress: shippingAddress,
		PaymentMethod:   paymentMethod,
		TotalPrice:      domain.CartTotal(items),
	}

	var resp struct {
		Success bool          `json:"success"`
		Message string        `json:"message"`
		Order   *domain.Order `json:"order"`
	}
	if err := s.gw.Do(ctx, http.MethodPost, "/orders", payload, &resp); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOrderPlacementFailure, err)
	}
	if !resp.Success || resp.Order == nil {
		if resp.Message != "" {
			return nil, fmt.Errorf("%w: %s", ErrOrderPlacementFailure, resp.Message)
		}
		return nil, ErrOrderPlacementFailure
	}

	s.logger.Info("Order placed",
		zap.String("order_id", resp.Order.ID),
		zap.Float64("total", resp.Order.TotalPrice),
	)
	return resp.Order, nil
}

// ListMine returns the current user's order history.
func (s *orderService) ListMine(ctx context.Context) ([]domain.Order, error) {
	if s.auth.Current() == nil {
		return nil, ErrNotAuthenticated
	}

	var resp struct {
		Orders []domain.Order `json:"orders"`
	}
	if err := s.gw.Do(ctx, http.MethodGet, "/orders", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch orders: %w", err)
	}
	return resp.Orders, nil
}
