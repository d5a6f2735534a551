package token

import (
	"fmt"
	"time"

	"github.com/ong-collab/collabctl/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultExpiryBuffer treats tokens as expired slightly before their literal
// expiry so in-flight requests do not race the deadline.
const DefaultExpiryBuffer = 30 * time.Second

// accessClaims mirrors the payload the auth service puts in access tokens.
type accessClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Decoder reads access token payloads without verifying signatures.
// Implements domain.TokenDecoder.
type Decoder struct {
	parser *jwt.Parser
}

// NewDecoder creates a new unverified decoder.
func NewDecoder() *Decoder {
	return &Decoder{parser: jwt.NewParser()}
}

// Decode parses the token payload. Signature verification is the backend's job.
func (d *Decoder) Decode(raw string) (domain.Claims, error) {
	if raw == "" {
		return domain.Claims{}, domain.ErrTokenMalformed
	}

	var claims accessClaims
	if _, _, err := d.parser.ParseUnverified(raw, &claims); err != nil {
		return domain.Claims{}, fmt.Errorf("%w: %w", domain.ErrTokenMalformed, err)
	}

	out := domain.Claims{
		Subject: claims.Subject,
		Email:   claims.Email,
		Role:    domain.Role(claims.Role),
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

// Expiry decides whether a token is expired with a safety buffer.
type Expiry struct {
	decoder *Decoder
	buffer  time.Duration
	now     func() time.Time
}

// NewExpiry creates an expiry predicate. A non-positive buffer falls back to
// DefaultExpiryBuffer.
func NewExpiry(buffer time.Duration, now func() time.Time) *Expiry {
	if buffer <= 0 {
		buffer = DefaultExpiryBuffer
	}
	if now == nil {
		now = time.Now
	}
	return &Expiry{decoder: NewDecoder(), buffer: buffer, now: now}
}

// Buffer returns the configured buffer.
func (e *Expiry) Buffer() time.Duration {
	return e.buffer
}

// ClaimsExpired reports whether the claims' expiry is less than the buffer
// away from now. Claims without exp count as expired.
func (e *Expiry) ClaimsExpired(c domain.Claims) bool {
	if c.ExpiresAt.IsZero() {
		return true
	}
	return c.ExpiresAt.Sub(e.now()) < e.buffer
}

// IsExpired applies the predicate to a raw token. Undecodable tokens are expired.
func (e *Expiry) IsExpired(raw string) bool {
	c, err := e.decoder.Decode(raw)
	if err != nil {
		return true
	}
	return e.ClaimsExpired(c)
}
