package service

import (
	"context"
	"testing"

	"storefront/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCreateOrderFreezesUnitPrices(t *testing.T) {
	env, _, cart := cartEnv(t)
	p := env.backend.SeedProduct(domain.Product{Title: "Widget", Price: 80, DiscountPercentage: 25})

	ctx := context.Background()
	require.NoError(t, cart.Add(ctx, p.ID, 2))

	order, err := cart.PlaceOrder(ctx, "12 Main St", domain.PaymentNetBanking)
	require.NoError(t, err)

	require.Len(t, order.Items, 1)
	line := order.Items[0]
	assert.Equal(t, p.ID, line.ProductID)
	assert.Equal(t, 2, line.Quantity)
	// The line carries the list price at submission time; the order total
	// carries the discounted sum.
	assert.InDelta(t, 80, line.Price, 1e-9)
	assert.InDelta(t, 80*0.75*2, order.TotalPrice, 1e-9)
}

func TestCreateOrderValidatesBeforeNetwork(t *testing.T) {
	doer := &countingDoer{}
	auth := authWithUser(t, doer)
	orders := NewOrderService(doer, auth, zap.NewNop())
	ctx := context.Background()

	items := []domain.CartItem{
		{Product: &domain.Product{ID: "p1", Price: 10}, Quantity: 1},
	}

	_, err := orders.Create(ctx, nil, "12 Main St", domain.PaymentUPI)
	assert.ErrorIs(t, err, ErrEmptyCart)

	_, err = orders.Create(ctx, items, "   ", domain.PaymentUPI)
	assert.ErrorIs(t, err, ErrMissingAddress)

	_, err = orders.Create(ctx, items, "12 Main St", "barter")
	assert.ErrorIs(t, err, ErrInvalidPaymentMethod)

	assert.Zero(t, doer.calls, "rejected orders must not reach the network")
}

func TestCreateOrderRequiresAuth(t *testing.T) {
	doer := &countingDoer{}
	auth := NewAuthService(doer, newSessionStore(t), zap.NewNop())
	orders := NewOrderService(doer, auth, zap.NewNop())

	_, err := orders.Create(context.Background(), nil, "addr", domain.PaymentUPI)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Zero(t, doer.calls)
}

func TestListMineReturnsOwnOrdersOnly(t *testing.T) {
	env := newTestEnv(t)
	env.backend.SeedUser("Ada", "ada@example.com", "hunter22", false)
	env.backend.SeedUser("Bob", "bob@example.com", "hunter22", false)
	p := env.backend.SeedProduct(domain.Product{Title: "Widget", Price: 10})

	ctx := context.Background()

	// Bob places an order first.
	bobAuth := env.newAuth(t)
	env.login(t, bobAuth, "bob@example.com", "hunter22")
	bobOrders := NewOrderService(env.gw, bobAuth, zap.NewNop())
	bobCart := NewCartService(env.gw, bobAuth, bobOrders, zap.NewNop())
	require.NoError(t, bobCart.Add(ctx, p.ID, 1))
	_, err := bobCart.PlaceOrder(ctx, "Bob's place", domain.PaymentCashOnDelivery)
	require.NoError(t, err)

	// Ada logs in on the same client and sees no orders.
	adaAuth := env.newAuth(t)
	env.login(t, adaAuth, "ada@example.com", "hunter22")
	adaOrders := NewOrderService(env.gw, adaAuth, zap.NewNop())

	mine, err := adaOrders.ListMine(ctx)
	require.NoError(t, err)
	assert.Empty(t, mine)

	adaCart := NewCartService(env.gw, adaAuth, adaOrders, zap.NewNop())
	require.NoError(t, adaCart.Add(ctx, p.ID, 2))
	_, err = adaCart.PlaceOrder(ctx, "Ada's place", domain.PaymentUPI)
	require.NoError(t, err)

	mine, err = adaOrders.ListMine(ctx)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Ada's place", mine[0].ShippingAddress)
}

// authWithUser fabricates a signed-in auth service without network access.
func authWithUser(t *testing.T, doer Doer) AuthService {
	t.Helper()
	sessions := newSessionStore(t)
	require.NoError(t, sessions.SetToken("local"))
	require.NoError(t, sessions.SaveUser(&domain.User{ID: "u1", Email: "u@example.com"}))
	return NewAuthService(doer, sessions, zap.NewNop())
}
