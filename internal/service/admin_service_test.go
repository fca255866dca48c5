package service

import (
	"context"
	"testing"

	"storefront/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func adminEnv(t *testing.T) (*testEnv, AdminService) {
	t.Helper()
	env := newTestEnv(t)
	env.backend.SeedUser("Root", "root@example.com", "hunter22", true)

	auth := env.newAuth(t)
	env.login(t, auth, "root@example.com", "hunter22")
	return env, NewAdminService(env.gw, auth, zap.NewNop())
}

func TestAdminGateBlocksNonAdminsWithoutNetwork(t *testing.T) {
	doer := &countingDoer{}
	auth := authWithUser(t, doer) // ordinary user
	admin := NewAdminService(doer, auth, zap.NewNop())
	ctx := context.Background()

	_, err := admin.Products(ctx)
	assert.ErrorIs(t, err, ErrAdminRequired)
	_, err = admin.Orders(ctx)
	assert.ErrorIs(t, err, ErrAdminRequired)
	_, err = admin.Carts(ctx)
	assert.ErrorIs(t, err, ErrAdminRequired)
	_, err = admin.AddProduct(ctx, ProductInput{Title: "X", Category: "y", Price: 1})
	assert.ErrorIs(t, err, ErrAdminRequired)
	err = admin.DeleteProduct(ctx, "p1")
	assert.ErrorIs(t, err, ErrAdminRequired)

	assert.Zero(t, doer.calls)
}

func TestAdminGateRequiresSignIn(t *testing.T) {
	doer := &countingDoer{}
	auth := NewAuthService(doer, newSessionStore(t), zap.NewNop())
	admin := NewAdminService(doer, auth, zap.NewNop())

	_, err := admin.Products(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Zero(t, doer.calls)
}

func TestAdminProductLifecycle(t *testing.T) {
	_, admin := adminEnv(t)
	ctx := context.Background()

	created, err := admin.AddProduct(ctx, ProductInput{
		Title:    "Gizmo",
		Category: "gadgets",
		Price:    49.5,
		Stock:    7,
	})
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.NotEmpty(t, created.ID)

	updated, err := admin.UpdateProduct(ctx, created.ID, ProductInput{
		Title:    "Gizmo v2",
		Category: "gadgets",
		Price:    59.5,
		Stock:    3,
	})
	require.NoError(t, err)
	assert.Equal(t, "Gizmo v2", updated.Title)
	assert.Equal(t, created.ID, updated.ID)

	all, err := admin.Products(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Gizmo v2", all[0].Title)

	require.NoError(t, admin.DeleteProduct(ctx, created.ID))
	all, err = admin.Products(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestAdminProductsBypassPagination(t *testing.T) {
	env, admin := adminEnv(t)
	for i := 0; i < 30; i++ {
		env.backend.SeedProduct(domain.Product{Title: "bulk", Category: "x", Price: 1})
	}

	all, err := admin.Products(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 30, "admin listing must return the full catalog")
}

func TestAdminNumericFieldsPassThroughUnclamped(t *testing.T) {
	_, admin := adminEnv(t)

	// Out-of-range numbers go to the server as entered; range validation
	// is the server's job.
	created, err := admin.AddProduct(context.Background(), ProductInput{
		Title:              "Odd",
		Category:           "weird",
		Price:              1,
		DiscountPercentage: 250,
		Rating:             9.9,
		Stock:              -4,
	})
	require.NoError(t, err)
	assert.Equal(t, 250.0, created.DiscountPercentage)
	assert.Equal(t, 9.9, created.Rating)
	assert.Equal(t, -4, created.Stock)
}

func TestAdminPresenceValidation(t *testing.T) {
	doer := &countingDoer{}
	sessions := newSessionStore(t)
	require.NoError(t, sessions.SetToken("local"))
	require.NoError(t, sessions.SaveUser(&domain.User{ID: "u1", IsAdmin: true}))
	auth := NewAuthService(doer, sessions, zap.NewNop())
	admin := NewAdminService(doer, auth, zap.NewNop())

	_, err := admin.AddProduct(context.Background(), ProductInput{Category: "x", Price: 1})
	assert.Error(t, err, "missing title must be rejected")
	assert.Zero(t, doer.calls)
}

func TestAdminOrdersAndCarts(t *testing.T) {
	env, _ := adminEnv(t)
	env.backend.SeedUser("Ada", "ada@example.com", "hunter22", false)
	p := env.backend.SeedProduct(domain.Product{Title: "Widget", Price: 20})

	ctx := context.Background()

	adaAuth := env.newAuth(t)
	env.login(t, adaAuth, "ada@example.com", "hunter22")
	adaOrders := NewOrderService(env.gw, adaAuth, zap.NewNop())
	adaCart := NewCartService(env.gw, adaAuth, adaOrders, zap.NewNop())
	require.NoError(t, adaCart.Add(ctx, p.ID, 2))
	_, err := adaCart.PlaceOrder(ctx, "Ada's place", domain.PaymentUPI)
	require.NoError(t, err)
	require.NoError(t, adaCart.Add(ctx, p.ID, 1))

	// The admin session was clobbered by Ada's login on the shared store;
	// sign back in.
	rootAuth := env.newAuth(t)
	env.login(t, rootAuth, "root@example.com", "hunter22")
	rootAdmin := NewAdminService(env.gw, rootAuth, zap.NewNop())

	orders, err := rootAdmin.Orders(ctx)
	require.NoError(t, err)
	assert.Len(t, orders, 1)

	carts, err := rootAdmin.Carts(ctx)
	require.NoError(t, err)
	require.Len(t, carts, 1)
	assert.Equal(t, 1, domain.CartItemCount(carts[0].Items))
}
