package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrUnauthorized marks a 401 response. By the time a caller sees it, the
// locally cached credentials have already been purged.
var ErrUnauthorized = errors.New("unauthorized")

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend returned %d", e.Status)
}

// Unwrap lets errors.Is(err, ErrUnauthorized) match 401 responses.
func (e *APIError) Unwrap() error {
	if e.Status == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

// Credentials is the slice of the session store the gateway needs: read the
// bearer token, and drop it when the backend says it is no longer valid.
type Credentials interface {
	Token() (string, bool)
	PurgeCredentials() error
}

// Gateway is the single HTTP wrapper through which all backend calls pass.
// It attaches bearer authorization, classifies failures, and centrally
// invalidates credentials on 401. One attempt per call; no retry.
type Gateway struct {
	baseURL string
	client  *http.Client
	creds   Credentials
	logger  *zap.Logger
}

// New creates a gateway for baseURL (the host part; "/api" is appended to
// every path here).
func New(baseURL string, timeout time.Duration, creds Credentials, logger *zap.Logger) *Gateway {
	return &Gateway{
		baseURL: strings.TrimRight(baseURL, "/") + "/api",
		client:  &http.Client{Timeout: timeout},
		creds:   creds,
		logger:  logger,
	}
}

// Do issues a single JSON request. body is marshaled when non-nil; a 2xx
// response is decoded into out when out is non-nil.
func (g *Gateway) Do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token, ok := g.creds.Token(); ok && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Debug("Request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return fmt.Errorf("request %s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	g.logger.Debug("Request completed",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode == http.StatusUnauthorized {
		// The sole cross-cutting failure policy: drop stale credentials
		// before the error reaches the caller.
		if err := g.creds.PurgeCredentials(); err != nil {
			g.logger.Warn("Failed to purge credentials after 401", zap.Error(err))
		}
		return &APIError{Status: resp.StatusCode, Message: errorMessage(resp.Body)}
	}
	if resp.StatusCode >= 400 {
		return &APIError{Status: resp.StatusCode, Message: errorMessage(resp.Body)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// errorMessage pulls {"message": ...} out of an error body, if present.
func errorMessage(body io.Reader) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return ""
	}
	return payload.Message
}
