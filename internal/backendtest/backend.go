// Package backendtest provides an in-memory storefront backend for tests.
// It implements the REST surface the client consumes, issues real HS256
// tokens, and enforces bearer auth so 401 paths can be exercised for real.
package backendtest

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"storefront/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const signingSecret = "backendtest-secret"

type account struct {
	user     domain.User
	password string
}

type cartLine struct {
	productID string
	quantity  int
}

// Server is an in-memory storefront backend.
type Server struct {
	mu       sync.Mutex
	products []domain.Product
	accounts map[string]*account // by email
	byID     map[string]*account
	carts    map[string][]cartLine // by user id
	orders   []domain.Order

	// Requests counts every handled HTTP request, letting tests assert
	// that an operation issued no network call or was served from cache.
	requests int
}

// New creates an empty backend.
func New() *Server {
	return &Server{
		accounts: make(map[string]*account),
		byID:     make(map[string]*account),
		carts:    make(map[string][]cartLine),
	}
}

// Handler returns the backend's router, mountable on httptest.NewServer.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.countRequests)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		r.Get("/products", s.handleProducts)
		r.Get("/products/{id}", s.handleProduct)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/users/cart", s.handleGetCart)
			r.Post("/users/cart", s.handleAddToCart)
			r.Put("/users/cart", s.handleUpdateCart)
			r.Delete("/users/cart", s.handleClearCart)
			r.Delete("/users/cart/{productID}", s.handleRemoveFromCart)
			r.Put("/users/profile", s.handleUpdateProfile)
			r.Post("/orders", s.handleCreateOrder)
			r.Get("/orders", s.handleMyOrders)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth, s.requireAdmin)
			r.Post("/products", s.handleAddProduct)
			r.Put("/products/{id}", s.handleUpdateProduct)
			r.Delete("/products/{id}", s.handleDeleteProduct)
			r.Get("/admin/orders", s.handleAllOrders)
			r.Get("/admin/carts", s.handleAllCarts)
		})
	})
	return r
}

// RequestCount returns how many requests the backend has served.
func (s *Server) RequestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

// SeedProduct inserts a product, minting an id when absent, and returns it.
func (s *Server) SeedProduct(p domain.Product) domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	s.products = append(s.products, p)
	return p
}

// SeedUser registers an account directly and returns its user record.
func (s *Server) SeedUser(name, email, password string, isAdmin bool) domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct := &account{
		user: domain.User{
			ID:      uuid.New().String(),
			Name:    name,
			Email:   email,
			IsAdmin: isAdmin,
		},
		password: password,
	}
	s.accounts[email] = acct
	s.byID[acct.user.ID] = acct
	return acct.user
}

// TokenFor signs a token for the given user id, optionally with the admin
// claim; expired tokens can be minted with a negative ttl.
func (s *Server) TokenFor(userID string, isAdmin bool, ttl time.Duration) string {
	claims := jwt.MapClaims{
		"id":      userID,
		"isAdmin": isAdmin,
		"exp":     time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, _ := token.SignedString([]byte(signingSecret))
	return signed
}

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests++
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

type contextKey string

const userKey contextKey = "user"

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		parts := strings.Split(header, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "missing token"})
			return
		}
		token, err := jwt.Parse(parts[1], func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(signingSecret), nil
		})
		if err != nil || !token.Valid {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "invalid token"})
			return
		}
		claims := token.Claims.(jwt.MapClaims)
		id, _ := claims["id"].(string)

		s.mu.Lock()
		acct, ok := s.byID[id]
		s.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "unknown user"})
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), &acct.user)))
	})
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user := currentUser(r); user == nil || !user.IsAdmin {
			writeJSON(w, http.StatusForbidden, map[string]any{"message": "admin only"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name      string `json:"name"`
		Email     string `json:"email"`
		Password  string `json:"password"`
		Role      string `json:"role"`
		AdminCode string `json:"adminCode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "bad request"})
		return
	}

	s.mu.Lock()
	if _, exists := s.accounts[req.Email]; exists {
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "email already registered"})
		return
	}
	acct := &account{
		user: domain.User{
			ID:      uuid.New().String(),
			Name:    req.Name,
			Email:   req.Email,
			IsAdmin: req.Role == "admin",
		},
		password: req.Password,
	}
	s.accounts[req.Email] = acct
	s.byID[acct.user.ID] = acct
	user := acct.user
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"token":   s.TokenFor(user.ID, user.IsAdmin, time.Hour),
		"user":    user,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "bad request"})
		return
	}

	s.mu.Lock()
	acct, ok := s.accounts[req.Email]
	s.mu.Unlock()
	if !ok || acct.password != req.Password {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "invalid email or password"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"token":   s.TokenFor(acct.user.ID, acct.user.IsAdmin, time.Hour),
		"user":    acct.user,
	})
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	matched := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		matched = append(matched, p)
	}
	s.mu.Unlock()

	q := r.URL.Query()

	if q.Get("all") == "true" {
		writeJSON(w, http.StatusOK, map[string]any{"products": matched, "total": len(matched)})
		return
	}

	if search := strings.ToLower(q.Get("search")); search != "" {
		matched = filter(matched, func(p domain.Product) bool {
			return strings.Contains(strings.ToLower(p.Title), search) ||
				strings.Contains(strings.ToLower(p.Brand), search)
		})
	}
	if category := q.Get("category"); category != "" {
		matched = filter(matched, func(p domain.Product) bool { return p.Category == category })
	}
	if raw := q.Get("price_lt"); raw != "" {
		if ceiling, err := strconv.ParseFloat(raw, 64); err == nil {
			matched = filter(matched, func(p domain.Product) bool { return p.Price < ceiling })
		}
	}
	// The rating parameter is received as a hint only, mirroring the real
	// backend: filtering happens client-side.

	total := len(matched)
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 1 {
		limit = domain.DefaultPageSize
	}
	start := (page - 1) * limit
	if start > len(matched) {
		start = len(matched)
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}

	writeJSON(w, http.StatusOK, map[string]any{"products": matched[start:end], "total": total})
}

func (s *Server) handleProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.products {
		if p.ID == id {
			writeJSON(w, http.StatusOK, p)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"message": "product not found"})
}

func (s *Server) handleGetCart(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	s.mu.Lock()
	items := s.populatedCart(user.ID)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"cart": items})
}

func (s *Server) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	var req struct {
		ProductID string `json:"productId"`
		Quantity  int    `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Quantity < 1 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "bad request"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findProduct(req.ProductID) == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "product not found"})
		return
	}
	lines := s.carts[user.ID]
	for i := range lines {
		if lines[i].productID == req.ProductID {
			// Re-adding increments rather than duplicating the line.
			lines[i].quantity += req.Quantity
			writeJSON(w, http.StatusOK, map[string]any{"success": true})
			return
		}
	}
	s.carts[user.ID] = append(lines, cartLine{productID: req.ProductID, quantity: req.Quantity})
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleUpdateCart(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	var req struct {
		ProductID string `json:"productId"`
		Quantity  int    `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Quantity < 1 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "bad request"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	lines := s.carts[user.ID]
	for i := range lines {
		if lines[i].productID == req.ProductID {
			lines[i].quantity = req.Quantity
			writeJSON(w, http.StatusOK, map[string]any{"success": true})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"message": "item not in cart"})
}

func (s *Server) handleRemoveFromCart(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	productID := chi.URLParam(r, "productID")

	s.mu.Lock()
	defer s.mu.Unlock()
	lines := s.carts[user.ID]
	for i := range lines {
		if lines[i].productID == productID {
			s.carts[user.ID] = append(lines[:i], lines[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]any{"success": true})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"message": "item not in cart"})
}

func (s *Server) handleClearCart(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	s.mu.Lock()
	delete(s.carts, user.ID)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	var req struct {
		Name    string `json:"name"`
		Phone   string `json:"phone"`
		Address string `json:"address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "bad request"})
		return
	}

	s.mu.Lock()
	acct := s.byID[user.ID]
	if req.Name != "" {
		acct.user.Name = req.Name
	}
	acct.user.Phone = req.Phone
	acct.user.Address = req.Address
	updated := acct.user
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": updated})
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	var req struct {
		CartItems       []domain.OrderItem `json:"cartItems"`
		ShippingAddress string             `json:"shippingAddress"`
		PaymentMethod   string             `json:"paymentMethod"`
		TotalPrice      float64            `json:"totalPrice"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.CartItems) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "bad request"})
		return
	}

	order := domain.Order{
		ID:              uuid.New().String(),
		UserID:          user.ID,
		Items:           req.CartItems,
		TotalPrice:      req.TotalPrice,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		Status:          domain.OrderStatusPending,
		CreatedAt:       time.Now().UTC(),
	}

	s.mu.Lock()
	s.orders = append(s.orders, order)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "order": order})
}

func (s *Server) handleMyOrders(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	s.mu.Lock()
	mine := make([]domain.Order, 0)
	for _, o := range s.orders {
		if o.UserID == user.ID {
			mine = append(mine, o)
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"orders": mine})
}

func (s *Server) handleAllOrders(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	all := make([]domain.Order, len(s.orders))
	copy(all, s.orders)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"orders": all})
}

func (s *Server) handleAllCarts(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	userIDs := make([]string, 0, len(s.carts))
	for id := range s.carts {
		userIDs = append(userIDs, id)
	}
	sort.Strings(userIDs)
	carts := make([]map[string]any, 0, len(userIDs))
	for _, id := range userIDs {
		carts = append(carts, map[string]any{"user": id, "cart": s.populatedCart(id)})
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"carts": carts})
}

func (s *Server) handleAddProduct(w http.ResponseWriter, r *http.Request) {
	var p domain.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "bad request"})
		return
	}
	p.ID = uuid.New().String()

	s.mu.Lock()
	s.products = append(s.products, p)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "product": p})
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var p domain.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "bad request"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.products {
		if s.products[i].ID == id {
			p.ID = id
			s.products[i] = p
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "product": p})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"message": "product not found"})
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.products {
		if s.products[i].ID == id {
			s.products = append(s.products[:i], s.products[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]any{"success": true})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"message": "product not found"})
}

// populatedCart resolves cart lines into items carrying the live product.
// Caller holds the lock.
func (s *Server) populatedCart(userID string) []domain.CartItem {
	lines := s.carts[userID]
	items := make([]domain.CartItem, 0, len(lines))
	for _, line := range lines {
		if p := s.findProduct(line.productID); p != nil {
			copied := *p
			items = append(items, domain.CartItem{Product: &copied, Quantity: line.quantity})
		}
	}
	return items
}

// findProduct returns the live product record. Caller holds the lock.
func (s *Server) findProduct(id string) *domain.Product {
	for i := range s.products {
		if s.products[i].ID == id {
			return &s.products[i]
		}
	}
	return nil
}

func filter(products []domain.Product, keep func(domain.Product) bool) []domain.Product {
	out := products[:0:0]
	for _, p := range products {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func withUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

func currentUser(r *http.Request) *domain.User {
	user, _ := r.Context().Value(userKey).(*domain.User)
	return user
}
