package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/ong-collab/collabctl/internal/adapter/gateway"
	"github.com/ong-collab/collabctl/internal/domain"
	"github.com/ong-collab/collabctl/internal/utils/validator"
)

func apiErr(status int, sentinel error, msg string) error {
	return &gateway.APIError{Op: "test", StatusCode: status, Message: msg, Err: sentinel}
}

func TestMapDomainError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"invalid credentials", domain.ErrInvalidCredentials, http.StatusUnauthorized},
		{"not authenticated", domain.ErrNotAuthenticated, http.StatusUnauthorized},
		{"refresh missing", domain.ErrRefreshTokenMissing, http.StatusUnauthorized},
		{"refresh expired", domain.ErrRefreshTokenExpired, http.StatusUnauthorized},
		{"refresh failed", domain.ErrRefreshFailed, http.StatusUnauthorized},
		{"superseded", domain.ErrSessionSuperseded, http.StatusUnauthorized},
		{"backend 401", apiErr(401, domain.ErrUnauthorized, "expired"), http.StatusUnauthorized},
		{"backend 403", apiErr(403, domain.ErrForbidden, "council only"), http.StatusForbidden},
		{"backend 404", apiErr(404, domain.ErrNotFound, "no such project"), http.StatusNotFound},
		{"backend 409", apiErr(409, domain.ErrConflict, "email taken"), http.StatusConflict},
		{"backend 422", apiErr(422, domain.ErrBadRequest, "bad stage"), http.StatusBadRequest},
		{"backend 500", apiErr(500, domain.ErrServerError, "boom"), http.StatusBadGateway},
		{"network", fmt.Errorf("projects.list: %w: dial tcp", domain.ErrNetwork), http.StatusBadGateway},
		{"validation", &validator.ValidationError{Errors: map[string]string{"email": "email is required"}}, http.StatusBadRequest},
		{"unknown error", errors.New("something unexpected"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			httpErr := mapDomainError(tt.err)
			assert.Equal(t, tt.wantCode, httpErr.Code)
		})
	}
}

func TestMapDomainError_PassesBackendMessage(t *testing.T) {
	httpErr := mapDomainError(apiErr(409, domain.ErrConflict, "email already registered"))
	assert.Equal(t, "email already registered", httpErr.Message)
}

func TestMapDomainError_BackendMessageWithFallback(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{"login with message", apiErr(401, domain.ErrInvalidCredentials, "Invalid credentials"), "Invalid credentials"},
		{"login without message", apiErr(401, domain.ErrInvalidCredentials, ""), "invalid email or password"},
		{"bare sentinel", domain.ErrInvalidCredentials, "invalid email or password"},
		{"5xx with message", apiErr(503, domain.ErrServerError, "Database unavailable"), "Database unavailable"},
		{"5xx without message", apiErr(500, domain.ErrServerError, ""), "backend error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMsg, mapDomainError(tt.err).Message)
		})
	}
}

func TestMapDomainError_WrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("context: %w", domain.ErrInvalidCredentials)
	assert.Equal(t, http.StatusUnauthorized, mapDomainError(wrapped).Code)

	doubleWrapped := fmt.Errorf("outer: %w", apiErr(404, domain.ErrNotFound, "gone"))
	assert.Equal(t, http.StatusNotFound, mapDomainError(doubleWrapped).Code)
}

func TestMapDomainError_KeepsHTTPError(t *testing.T) {
	in := echo.NewHTTPError(http.StatusServiceUnavailable, "session is loading")
	assert.Same(t, in, mapDomainError(in))
}
