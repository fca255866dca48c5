package service

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"storefront/internal/domain"

	"go.uber.org/zap"
)

// CartService holds the signed-in user's cart and keeps it synchronized
// with the backend. Every write is followed by a full refetch instead of an
// optimistic local mutation, so the client never diverges from server-side
// stock and price truth; overlapping calls converge for the same reason.
type CartService interface {
	Fetch(ctx context.Context) error
	Add(ctx context.Context, productID string, quantity int) error
	Update(ctx context.Context, productID string, quantity int) error
	Remove(ctx context.Context, productID string) error
	PlaceOrder(ctx context.Context, shippingAddress, paymentMethod string) (*domain.Order, error)
	Clear(ctx context.Context)
	Items() []domain.CartItem
	Total() float64
	ItemCount() int
	Busy() bool
}

type cartService struct {
	gw     Doer
	auth   AuthService
	orders OrderService
	logger *zap.Logger

	busy atomic.Bool // visual-feedback flag, not a request serializer

	mu    sync.RWMutex
	items []domain.CartItem
}

// NewCartService creates a cart service.
func NewCartService(gw Doer, auth AuthService, orders OrderService, logger *zap.Logger) CartService {
	return &cartService{gw: gw, auth: auth, orders: orders, logger: logger}
}

// cartResponse is the wire shape of GET /users/cart.
type cartResponse struct {
	Cart []domain.CartItem `json:"cart"`
}

// Fetch replaces the local cart with the server's. On failure the previous
// local cart stays untouched.
func (s *cartService) Fetch(ctx context.Context) error {
	if s.auth.Current() == nil {
		return ErrNotAuthenticated
	}
	s.busy.Store(true)
	defer s.busy.Store(false)

	var resp cartResponse
	if err := s.gw.Do(ctx, http.MethodGet, "/users/cart", nil, &resp); err != nil {
		s.logger.Warn("Failed to fetch cart", zap.Error(err))
		return fmt.Errorf("could not load cart: %w", err)
	}

	s.mu.Lock()
	s.items = resp.Cart
	s.mu.Unlock()
	return nil
}

// Add sends an increment to the server and refetches. Re-adding a product
// the cart already holds bumps its quantity server-side; the refetch makes
// the client reflect that rather than duplicating the entry.
func (s *cartService) Add(ctx context.Context, productID string, quantity int) error {
	if s.auth.Current() == nil {
		return ErrNotAuthenticated
	}
	if quantity < 1 {
		quantity = 1
	}
	s.busy.Store(true)
	defer s.busy.Store(false)

	payload := map[string]any{"productId": productID, "quantity": quantity}
	if err := s.gw.Do(ctx, http.MethodPost, "/users/cart", payload, nil); err != nil {
		return fmt.Errorf("failed to add item: %w", err)
	}
	return s.refetch(ctx)
}

// Update sets a line's quantity and refetches.
func (s *cartService) Update(ctx context.Context, productID string, quantity int) error {
	if s.auth.Current() == nil {
		return ErrNotAuthenticated
	}
	if quantity < 1 {
		quantity = 1
	}
	s.busy.Store(true)
	defer s.busy.Store(false)

	payload := map[string]any{"productId": productID, "quantity": quantity}
	if err := s.gw.Do(ctx, http.MethodPut, "/users/cart", payload, nil); err != nil {
		return fmt.Errorf("failed to update cart: %w", err)
	}
	return s.refetch(ctx)
}

// Remove deletes a line and refetches.
func (s *cartService) Remove(ctx context.Context, productID string) error {
	if s.auth.Current() == nil {
		return ErrNotAuthenticated
	}
	s.busy.Store(true)
	defer s.busy.Store(false)

	if err := s.gw.Do(ctx, http.MethodDelete, "/users/cart/"+productID, nil, nil); err != nil {
		return fmt.Errorf("failed to remove item: %w", err)
	}
	return s.refetch(ctx)
}

// PlaceOrder checks out the current items. On success the cart is cleared;
// on failure it is left untouched so the user can retry.
func (s *cartService) PlaceOrder(ctx context.Context, shippingAddress, paymentMethod string) (*domain.Order, error) {
	if s.auth.Current() == nil {
		return nil, ErrNotAuthenticated
	}
	s.busy.Store(true)
	defer s.busy.Store(false)

	order, err := s.orders.Create(ctx, s.Items(), shippingAddress, paymentMethod)
	if err != nil {
		return nil, err
	}
	s.Clear(ctx)
	return order, nil
}

// Clear empties the cart server-side best-effort (the endpoint may not
// exist) and resets local state unconditionally. Local state is never left
// inconsistent by a failed remote call.
func (s *cartService) Clear(ctx context.Context) {
	if s.auth.Current() != nil {
		if err := s.gw.Do(ctx, http.MethodDelete, "/users/cart", nil, nil); err != nil {
			s.logger.Debug("Server-side cart clear failed, resetting locally", zap.Error(err))
		}
	}
	s.mu.Lock()
	s.items = nil
	s.mu.Unlock()
}

// Items returns a copy of the current cart lines.
func (s *cartService) Items() []domain.CartItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.CartItem, len(s.items))
	copy(out, s.items)
	return out
}

// Total is recomputed from the current items on every call.
func (s *cartService) Total() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.CartTotal(s.items)
}

// ItemCount is recomputed from the current items on every call.
func (s *cartService) ItemCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.CartItemCount(s.items)
}

// Busy reports whether a cart call is in flight.
func (s *cartService) Busy() bool {
	return s.busy.Load()
}

// refetch pulls the full cart after a write.
func (s *cartService) refetch(ctx context.Context) error {
	var resp cartResponse
	if err := s.gw.Do(ctx, http.MethodGet, "/users/cart", nil, &resp); err != nil {
		s.logger.Warn("Failed to refetch cart after write", zap.Error(err))
		return fmt.Errorf("could not refresh cart: %w", err)
	}
	s.mu.Lock()
	s.items = resp.Cart
	s.mu.Unlock()
	return nil
}
