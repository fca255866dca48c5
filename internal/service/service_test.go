package service

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"storefront/internal/backendtest"
	"storefront/internal/cache"
	"storefront/internal/gateway"
	"storefront/internal/store"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// testEnv wires the real gateway against the in-memory fixture backend, so
// service tests exercise the full client-side path including auth headers
// and 401 handling.
type testEnv struct {
	backend  *backendtest.Server
	srv      *httptest.Server
	sessions *store.Store
	gw       *gateway.Gateway
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	backend := backendtest.New()
	srv := httptest.NewServer(backend.Handler())
	t.Cleanup(srv.Close)

	sessions, err := store.Open(afero.NewMemMapFs(), "/state")
	require.NoError(t, err)

	gw := gateway.New(srv.URL, 5*time.Second, sessions, zap.NewNop())

	return &testEnv{
		backend:  backend,
		srv:      srv,
		sessions: sessions,
		gw:       gw,
	}
}

func (e *testEnv) newAuth(t *testing.T) AuthService {
	t.Helper()
	return NewAuthService(e.gw, e.sessions, zap.NewNop())
}

// login signs an existing seeded account in through the real flow.
func (e *testEnv) login(t *testing.T, auth AuthService, email, password string) {
	t.Helper()
	result := auth.Login(context.Background(), email, password)
	require.True(t, result.Success, "login failed: %s", result.Message)
}

// countingDoer records calls without performing any network access. Used to
// prove fail-fast paths never reach the gateway.
type countingDoer struct {
	calls int
	err   error
}

func (d *countingDoer) Do(ctx context.Context, method, path string, body, out any) error {
	d.calls++
	return d.err
}

func newTestCache() *cache.Cache {
	return cache.New(30 * time.Second)
}

// newSessionStore builds a bare in-memory session store for tests that do
// not need the fixture backend.
func newSessionStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(afero.NewMemMapFs(), "/state")
	require.NoError(t, err)
	return s
}
