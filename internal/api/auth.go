package api

import (
	"context"
	"net/http"

	"consult-client/internal/models"
)

// AuthClient wraps the authentication endpoints.
type AuthClient struct {
	c *Client
}

// Auth returns the auth sub-client.
func (c *Client) Auth() *AuthClient {
	return &AuthClient{c: c}
}

// Login exchanges credentials for a token/profile pair. The caller is
// expected to persist the pair in the credential store.
func (ac *AuthClient) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	var out models.LoginResponse
	if err := ac.c.do(ctx, http.MethodPost, "/api/auth/login", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
