package service

import (
	"context"
	"fmt"
	"net/http"

	"storefront/internal/domain"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// ProductInput is the admin product form. Presence checks only; numeric
// fields are sent as entered and the server is trusted to range-validate.
type ProductInput struct {
	Title              string  `json:"title" validate:"required"`
	Description        string  `json:"description,omitempty"`
	Brand              string  `json:"brand,omitempty"`
	Category           string  `json:"category" validate:"required"`
	Price              float64 `json:"price" validate:"required"`
	DiscountPercentage float64 `json:"discountPercentage"`
	Rating             float64 `json:"rating"`
	Stock              int     `json:"stock"`
	Thumbnail          string  `json:"thumbnail,omitempty"`
}

// AdminService exposes product CRUD and order/cart listings. The IsAdmin
// check here only avoids pointless requests; the server enforces the role.
type AdminService interface {
	Products(ctx context.Context) ([]domain.Product, error)
	Orders(ctx context.Context) ([]domain.Order, error)
	Carts(ctx context.Context) ([]AdminCart, error)
	AddProduct(ctx context.Context, input ProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id string, input ProductInput) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

// AdminCart is one user's cart as the admin listing reports it.
type AdminCart struct {
	UserID string            `json:"user"`
	Items  []domain.CartItem `json:"cart"`
}

type adminService struct {
	gw       Doer
	auth     AuthService
	validate *validator.Validate
	logger   *zap.Logger
}

// NewAdminService creates an admin service.
func NewAdminService(gw Doer, auth AuthService, logger *zap.Logger) AdminService {
	return &adminService{gw: gw, auth: auth, validate: validator.New(), logger: logger}
}

func (s *adminService) gate() error {
	if s.auth.Current() == nil {
		return ErrNotAuthenticated
	}
	if !s.auth.IsAdmin() {
		return ErrAdminRequired
	}
	return nil
}

// Products returns the full catalog, bypassing normal pagination.
func (s *adminService) Products(ctx context.Context) ([]domain.Product, error) {
	if err := s.gate(); err != nil {
		return nil, err
	}
	var resp struct {
		Products []domain.Product `json:"products"`
	}
	if err := s.gw.Do(ctx, http.MethodGet, "/products?all=true", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch catalog: %w", err)
	}
	return resp.Products, nil
}

// Orders returns every order across all users.
func (s *adminService) Orders(ctx context.Context) ([]domain.Order, error) {
	if err := s.gate(); err != nil {
		return nil, err
	}
	var resp struct {
		Orders []domain.Order `json:"orders"`
	}
	if err := s.gw.Do(ctx, http.MethodGet, "/admin/orders", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch orders: %w", err)
	}
	return resp.Orders, nil
}

// Carts returns every user's cart.
func (s *adminService) Carts(ctx context.Context) ([]AdminCart, error) {
	if err := s.gate(); err != nil {
		return nil, err
	}
	var resp struct {
		Carts []AdminCart `json:"carts"`
	}
	if err := s.gw.Do(ctx, http.MethodGet, "/admin/carts", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch carts: %w", err)
	}
	return resp.Carts, nil
}

// AddProduct creates a catalog product.
func (s *adminService) AddProduct(ctx context.Context, input ProductInput) (*domain.Product, error) {
	if err := s.gate(); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("invalid product: %s", validationMessage(err))
	}
	var resp struct {
		Product *domain.Product `json:"product"`
	}
	if err := s.gw.Do(ctx, http.MethodPost, "/products", input, &resp); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	s.logger.Info("Product created", zap.String("title", input.Title))
	return resp.Product, nil
}

// UpdateProduct updates a catalog product by id.
func (s *adminService) UpdateProduct(ctx context.Context, id string, input ProductInput) (*domain.Product, error) {
	if err := s.gate(); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("invalid product: %s", validationMessage(err))
	}
	var resp struct {
		Product *domain.Product `json:"product"`
	}
	if err := s.gw.Do(ctx, http.MethodPut, "/products/"+id, input, &resp); err != nil {
		return nil, fmt.Errorf("failed to update product %s: %w", id, err)
	}
	return resp.Product, nil
}

// DeleteProduct removes a catalog product by id.
func (s *adminService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.gate(); err != nil {
		return err
	}
	if err := s.gw.Do(ctx, http.MethodDelete, "/products/"+id, nil, nil); err != nil {
		return fmt.Errorf("failed to delete product %s: %w", id, err)
	}
	s.logger.Info("Product deleted", zap.String("product_id", id))
	return nil
}
