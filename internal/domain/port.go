package domain

import "context"

// SessionStore is the durable client-side key/value storage holding the
// session. Get returns ErrKeyNotFound for absent keys.
type SessionStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// AuthGateway is the external auth service.
type AuthGateway interface {
	Login(ctx context.Context, creds Credentials) (*Tokens, error)
	Register(ctx context.Context, input RegisterInput) (*Profile, error)
	Refresh(ctx context.Context, refreshToken string) (*Tokens, error)
}

// TokenDecoder extracts claims from an access token without verifying it.
type TokenDecoder interface {
	Decode(token string) (Claims, error)
}

// Navigator moves the user to a client route.
type Navigator interface {
	Navigate(route string)
}

// TokenSource supplies the bearer token attached to outgoing requests.
// An empty token means no Authorization header.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}
