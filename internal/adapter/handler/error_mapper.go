package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ong-collab/collabctl/internal/adapter/gateway"
	"github.com/ong-collab/collabctl/internal/domain"
	"github.com/ong-collab/collabctl/internal/utils/validator"
)

// mapDomainError converts a session, gateway or validation error into an
// echo.HTTPError. Backend messages are passed through; the fixed texts are
// used only when the backend sent none.
func mapDomainError(err error) *echo.HTTPError {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}

	var verr *validator.ValidationError
	if errors.As(err, &verr) {
		return echo.NewHTTPError(http.StatusBadRequest, verr.Error())
	}

	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, backendMessage(err, "invalid email or password"))

	case errors.Is(err, domain.ErrNotAuthenticated),
		errors.Is(err, domain.ErrRefreshTokenMissing),
		errors.Is(err, domain.ErrRefreshTokenExpired),
		errors.Is(err, domain.ErrRefreshFailed),
		errors.Is(err, domain.ErrSessionSuperseded),
		errors.Is(err, domain.ErrUnauthorized):
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")

	case errors.Is(err, domain.ErrNetwork):
		return echo.NewHTTPError(http.StatusBadGateway, "backend unreachable")

	case errors.Is(err, domain.ErrServerError):
		return echo.NewHTTPError(http.StatusBadGateway, backendMessage(err, "backend error"))
	}

	var apiErr *gateway.APIError
	if errors.As(err, &apiErr) {
		code := http.StatusBadRequest
		switch {
		case errors.Is(err, domain.ErrForbidden):
			code = http.StatusForbidden
		case errors.Is(err, domain.ErrNotFound):
			code = http.StatusNotFound
		case errors.Is(err, domain.ErrConflict):
			code = http.StatusConflict
		}
		return echo.NewHTTPError(code, apiErr.Message)
	}

	return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
}

// backendMessage returns the message of the APIError inside err, or fallback.
func backendMessage(err error, fallback string) string {
	var apiErr *gateway.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// errorResponse is the JSON body of every console error.
type errorResponse struct {
	Error string `json:"error"`
}

// errorHandler renders errors as {"error": "..."}.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	he := mapDomainError(err)

	msg := http.StatusText(he.Code)
	if m, ok := he.Message.(string); ok && m != "" {
		msg = m
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(he.Code)
		return
	}
	_ = c.JSON(he.Code, errorResponse{Error: msg})
}
