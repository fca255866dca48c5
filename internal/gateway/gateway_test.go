package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront/internal/store"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(afero.NewMemMapFs(), "/state")
	require.NoError(t, err)
	return s
}

func TestDoAttachesBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	sessions := newTestStore(t)
	require.NoError(t, sessions.SetToken("tok-1"))

	gw := New(srv.URL, time.Second, sessions, zap.NewNop())
	require.NoError(t, gw.Do(context.Background(), http.MethodGet, "/products", nil, nil))
	assert.Equal(t, "Bearer tok-1", gotAuth)
}

func TestDoOmitsAuthorizationWhenAnonymous(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	gw := New(srv.URL, time.Second, newTestStore(t), zap.NewNop())
	require.NoError(t, gw.Do(context.Background(), http.MethodGet, "/products", nil, nil))
	assert.Empty(t, gotAuth)
}

func TestUnauthorizedPurgesCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"message": "token expired"})
	}))
	defer srv.Close()

	sessions := newTestStore(t)
	require.NoError(t, sessions.SetToken("stale"))

	gw := New(srv.URL, time.Second, sessions, zap.NewNop())
	err := gw.Do(context.Background(), http.MethodGet, "/users/cart", nil, nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnauthorized))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "token expired", apiErr.Message)

	_, ok := sessions.Token()
	assert.False(t, ok, "401 must remove the stored token")
}

func TestServerErrorCarriesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"message": "quantity must be positive"})
	}))
	defer srv.Close()

	gw := New(srv.URL, time.Second, newTestStore(t), zap.NewNop())
	err := gw.Do(context.Background(), http.MethodPost, "/users/cart", map[string]int{"quantity": 0}, nil)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "quantity must be positive", apiErr.Message)
	assert.False(t, errors.Is(err, ErrUnauthorized))
}

func TestDoDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"total": 7})
	}))
	defer srv.Close()

	gw := New(srv.URL, time.Second, newTestStore(t), zap.NewNop())

	var out struct {
		Total int `json:"total"`
	}
	require.NoError(t, gw.Do(context.Background(), http.MethodGet, "/products", nil, &out))
	assert.Equal(t, 7, out.Total)
}

func TestNetworkFailureIsWrapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	gw := New(srv.URL, time.Second, newTestStore(t), zap.NewNop())
	err := gw.Do(context.Background(), http.MethodGet, "/products", nil, nil)

	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr), "transport failures are not APIErrors")
}

func TestBasePathIncludesAPI(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	gw := New(srv.URL+"/", time.Second, newTestStore(t), zap.NewNop())
	require.NoError(t, gw.Do(context.Background(), http.MethodGet, "/orders", nil, nil))
	assert.Equal(t, "/api/orders", gotPath)
}
