package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"storefront/internal/domain"
	"storefront/internal/gateway"
	"storefront/internal/store"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// AdminRegistrationCode is a client-visible equality gate on the admin
// registration form. It is a UX convenience, not a security boundary: the
// server validates role elevation on its own.
const AdminRegistrationCode = "anand@1"

// Result is the outcome of a login or registration attempt. Failures are
// reported through Message instead of an error so callers can surface them
// directly.
type Result struct {
	Success bool
	Message string
}

// RegisterInput is the registration form.
type RegisterInput struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Phone           string `json:"phone,omitempty"`
	Address         string `json:"address,omitempty"`
	Password        string `json:"password" validate:"required,min=8"`
	ConfirmPassword string `json:"-" validate:"required,eqfield=Password"`
	Role            string `json:"role" validate:"omitempty,oneof=user admin"`
	AdminCode       string `json:"adminCode,omitempty"`
}

// ProfileInput is the profile update form.
type ProfileInput struct {
	Name    string `json:"name" validate:"required"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

// AuthService holds the current identity and drives login, registration,
// logout, and session restore.
type AuthService interface {
	Login(ctx context.Context, email, password string) Result
	Register(ctx context.Context, input RegisterInput) Result
	Logout()
	Current() *domain.User
	IsAdmin() bool
	Refresh()
	UpdateProfile(ctx context.Context, input ProfileInput) error
}

type authService struct {
	gw       Doer
	sessions *store.Store
	validate *validator.Validate
	logger   *zap.Logger

	mu   sync.RWMutex
	user *domain.User
}

// NewAuthService creates the auth service and restores any cached session.
func NewAuthService(gw Doer, sessions *store.Store, logger *zap.Logger) AuthService {
	s := &authService{
		gw:       gw,
		sessions: sessions,
		validate: validator.New(),
		logger:   logger,
	}
	s.restore()
	return s
}

// authResponse is the wire shape of /auth/login and /auth/register.
type authResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Token   string       `json:"token"`
	User    *domain.User `json:"user"`
}

// Login authenticates and, on success, persists the token and profile.
func (s *authService) Login(ctx context.Context, email, password string) Result {
	payload := map[string]string{"email": email, "password": password}

	var resp authResponse
	if err := s.gw.Do(ctx, http.MethodPost, "/auth/login", payload, &resp); err != nil {
		s.logger.Debug("Login request failed", zap.Error(err))
		return Result{Success: false, Message: failureMessage(err, "Login failed")}
	}
	if !resp.Success {
		return Result{Success: false, Message: resp.Message}
	}

	s.adopt(resp.Token, resp.User)
	s.logger.Info("User logged in", zap.String("user_id", resp.User.ID))
	return Result{Success: true}
}

// Register creates an account. Validation runs before any network call; an
// admin role selection additionally requires the registration code to match.
func (s *authService) Register(ctx context.Context, input RegisterInput) Result {
	if err := s.validate.Struct(input); err != nil {
		return Result{Success: false, Message: validationMessage(err)}
	}
	if input.Role == "admin" && input.AdminCode != AdminRegistrationCode {
		return Result{Success: false, Message: "Admin secret key is not matching"}
	}
	if input.Role != "admin" {
		input.AdminCode = ""
	}

	var resp authResponse
	if err := s.gw.Do(ctx, http.MethodPost, "/auth/register", input, &resp); err != nil {
		s.logger.Debug("Registration request failed", zap.Error(err))
		return Result{Success: false, Message: failureMessage(err, "Registration failed")}
	}
	if !resp.Success {
		return Result{Success: false, Message: resp.Message}
	}

	s.adopt(resp.Token, resp.User)
	s.logger.Info("User registered", zap.String("user_id", resp.User.ID))
	return Result{Success: true}
}

// Logout drops the session unconditionally. Idempotent.
func (s *authService) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.sessions.PurgeCredentials(); err != nil {
		s.logger.Warn("Failed to clear session store", zap.Error(err))
	}
	s.user = nil
}

// Current returns the active identity, or nil when anonymous.
func (s *authService) Current() *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// IsAdmin reports whether the active identity carries the admin flag. This
// only gates UI surface; the server decides authorization.
func (s *authService) IsAdmin() bool {
	user := s.Current()
	return user != nil && user.IsAdmin
}

// Refresh re-derives identity from the session store. Call after an
// operation may have purged credentials (the gateway does so on 401).
func (s *authService) Refresh() {
	s.restore()
}

// UpdateProfile saves profile changes server-side and refreshes the cached
// copy.
func (s *authService) UpdateProfile(ctx context.Context, input ProfileInput) error {
	if s.Current() == nil {
		return ErrNotAuthenticated
	}
	if err := s.validate.Struct(input); err != nil {
		return fmt.Errorf("invalid profile: %s", validationMessage(err))
	}

	var resp struct {
		Success bool         `json:"success"`
		User    *domain.User `json:"user"`
	}
	if err := s.gw.Do(ctx, http.MethodPut, "/users/profile", input, &resp); err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	if resp.User != nil {
		s.mu.Lock()
		s.user = resp.User
		s.mu.Unlock()
		if err := s.sessions.SaveUser(resp.User); err != nil {
			s.logger.Warn("Failed to cache updated profile", zap.Error(err))
		}
	}
	return nil
}

// adopt installs a fresh token+profile in memory and in the session store.
func (s *authService) adopt(token string, user *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.sessions.SetToken(token); err != nil {
		s.logger.Warn("Failed to persist token", zap.Error(err))
	}
	if err := s.sessions.SaveUser(user); err != nil {
		s.logger.Warn("Failed to persist profile", zap.Error(err))
	}
	s.user = user
}

// restore rebuilds identity from the session store: a cached profile wins;
// otherwise the token payload is decoded without signature verification to
// form a provisional identity, confirmed only by later authenticated calls
// succeeding. A token that does not decode is purged and the session is
// treated as anonymous.
func (s *authService) restore() {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, ok := s.sessions.Token()
	if !ok || token == "" {
		s.user = nil
		return
	}

	if cached := s.sessions.LoadUser(); cached != nil {
		s.user = cached
		return
	}

	user, err := decodeProvisionalIdentity(token)
	if err != nil {
		s.logger.Debug("Discarding undecodable cached token", zap.Error(err))
		if err := s.sessions.PurgeCredentials(); err != nil {
			s.logger.Warn("Failed to purge invalid token", zap.Error(err))
		}
		s.user = nil
		return
	}
	s.user = user
}

// decodeProvisionalIdentity extracts a minimal identity from an unverified
// token payload. The client cannot check signatures; decoded claims are
// never treated as authorization truth.
func decodeProvisionalIdentity(token string) (*domain.User, error) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("failed to decode token payload: %w", err)
	}

	user := &domain.User{}
	if id, ok := claims["id"].(string); ok {
		user.ID = id
	} else if sub, err := claims.GetSubject(); err == nil {
		user.ID = sub
	}
	if user.ID == "" {
		return nil, errors.New("token payload carries no user id")
	}
	if isAdmin, ok := claims["isAdmin"].(bool); ok {
		user.IsAdmin = isAdmin
	}
	return user, nil
}

// failureMessage prefers the backend's message over a generic fallback.
func failureMessage(err error, fallback string) string {
	var apiErr *gateway.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// validationMessage flattens the first validator error into a user-facing
// sentence.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid input"
	}
	e := verrs[0]
	switch e.Tag() {
	case "required":
		return e.Field() + " is required"
	case "email":
		return "invalid email format"
	case "min":
		return e.Field() + " must be at least " + e.Param() + " characters"
	case "eqfield":
		return "passwords don't match"
	case "oneof":
		return e.Field() + " must be one of: " + e.Param()
	default:
		return e.Field() + " is invalid"
	}
}
