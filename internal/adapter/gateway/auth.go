package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ong-collab/collabctl/internal/domain"
)

// AuthClient implements domain.AuthGateway against the /auth endpoints.
type AuthClient struct {
	c *Client
}

// NewAuthClient wraps a Client. Auth calls never carry a bearer token.
func NewAuthClient(c *Client) *AuthClient {
	return &AuthClient{c: c.WithTokenSource(nil)}
}

// tokenResponse is the login and refresh payload. Some deployments echo the
// user profile alongside the tokens.
type tokenResponse struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	TokenType    string          `json:"token_type"`
	User         json.RawMessage `json:"user,omitempty"`
}

func (r tokenResponse) tokens(op string) (*domain.Tokens, error) {
	if r.AccessToken == "" || r.RefreshToken == "" {
		return nil, fmt.Errorf("%s: %w: response carries no tokens", op, domain.ErrServerError)
	}
	return &domain.Tokens{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		TokenType:    r.TokenType,
	}, nil
}

// profile decodes the optional user field; malformed values are ignored.
func (r tokenResponse) profile() *domain.Profile {
	if len(r.User) == 0 || string(r.User) == "null" {
		return nil
	}
	var p domain.Profile
	if err := json.Unmarshal(r.User, &p); err != nil || p.ID == "" {
		return nil
	}
	return &p
}

// Login exchanges credentials for tokens. A 401 is reported as
// domain.ErrInvalidCredentials inside the *APIError.
func (a *AuthClient) Login(ctx context.Context, creds domain.Credentials) (*domain.Tokens, error) {
	tokens, _, err := a.LoginWithProfile(ctx, creds)
	return tokens, err
}

// LoginWithProfile is Login plus the profile the backend may echo back.
func (a *AuthClient) LoginWithProfile(ctx context.Context, creds domain.Credentials) (*domain.Tokens, *domain.Profile, error) {
	const op = "auth.login"

	var resp tokenResponse
	if err := a.c.doJSON(ctx, op, http.MethodPost, "/auth/login", nil, creds, &resp); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
			apiErr.Err = domain.ErrInvalidCredentials
		}
		return nil, nil, err
	}
	tokens, err := resp.tokens(op)
	if err != nil {
		return nil, nil, err
	}
	return tokens, resp.profile(), nil
}

// Register creates an account. The input is sent as given; callers force the role.
func (a *AuthClient) Register(ctx context.Context, input domain.RegisterInput) (*domain.Profile, error) {
	var profile domain.Profile
	if err := a.c.doJSON(ctx, "auth.register", http.MethodPost, "/auth/register", nil, input, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Refresh trades a refresh token for a new pair.
func (a *AuthClient) Refresh(ctx context.Context, refreshToken string) (*domain.Tokens, error) {
	const op = "auth.refresh"

	body := map[string]string{"refresh_token": refreshToken}
	var resp tokenResponse
	if err := a.c.doJSON(ctx, op, http.MethodPost, "/auth/refresh", nil, body, &resp); err != nil {
		return nil, err
	}
	if resp.RefreshToken == "" {
		// backend without refresh token rotation
		resp.RefreshToken = refreshToken
	}
	return resp.tokens(op)
}
