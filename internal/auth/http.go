package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const authorizeTimeout = 500 * time.Millisecond

// HTTPAuthorizer resolves tokens through an external service, for
// deployments that issue logins elsewhere. The service answers
// POST {"token": ...} with {"valid": ..., "login": ..., "role": ...}.
type HTTPAuthorizer struct {
	url    string
	secret string
	client *http.Client
}

// NewHTTPAuthorizer builds an authorizer against the given endpoint. A
// non-empty secret is sent as X-Admin-Secret on every request.
func NewHTTPAuthorizer(url, secret string) *HTTPAuthorizer {
	return &HTTPAuthorizer{
		url:    url,
		secret: secret,
		client: &http.Client{Timeout: authorizeTimeout},
	}
}

type authorizeRequest struct {
	Token string `json:"token"`
}

type authorizeResponse struct {
	Valid bool   `json:"valid"`
	Login string `json:"login,omitempty"`
	Role  string `json:"role,omitempty"`
	Error string `json:"error,omitempty"`
}

// Authorize asks the service. Only an explicit rejection maps to
// ErrInvalidToken; timeouts, transport failures and malformed answers are
// ErrUnavailable.
func (a *HTTPAuthorizer) Authorize(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrInvalidToken
	}
	ctx, cancel := context.WithTimeout(ctx, authorizeTimeout)
	defer cancel()

	body, err := json.Marshal(authorizeRequest{Token: token})
	if err != nil {
		return Identity{}, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(body))
	if err != nil {
		return Identity{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if a.secret != "" {
		req.Header.Set("X-Admin-Secret", a.secret)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return Identity{}, ErrInvalidToken
	default:
		return Identity{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var decoded authorizeResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&decoded); err != nil {
		return Identity{}, fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}
	if !decoded.Valid {
		return Identity{}, ErrInvalidToken
	}

	login, err := NormalizeLogin(decoded.Login)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: service returned login %q", ErrUnavailable, decoded.Login)
	}
	role, err := ParseRole(decoded.Role)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return Identity{Login: login, Role: role}, nil
}
