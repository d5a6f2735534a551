package output

import (
	"errors"
	"fmt"

	"github.com/fatih/color"

	"github.com/ong-collab/collabctl/internal/adapter/gateway"
	"github.com/ong-collab/collabctl/internal/domain"
	"github.com/ong-collab/collabctl/internal/utils/validator"
)

// Exit code constants
const (
	ExitSuccess      = 0
	ExitGeneral      = 1
	ExitUsageError   = 2
	ExitConfigError  = 4
	ExitAuthRequired = 6
	ExitAPIError     = 7
	ExitNetworkError = 8
)

// CLIError is a structured error with user-facing context
type CLIError struct {
	Summary    string
	Detail     string
	Suggestion string
	ExitCode   int
	Err        error
}

// Error implements the error interface, returning the summary
func (e *CLIError) Error() string {
	return e.Summary
}

func (e *CLIError) Unwrap() error {
	return e.Err
}

// FromError classifies err into a CLIError with an exit code and a next step.
func FromError(err error) *CLIError {
	if err == nil {
		return nil
	}

	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return cliErr
	}

	var verr *validator.ValidationError
	if errors.As(err, &verr) {
		return &CLIError{
			Summary:    "invalid input",
			Detail:     verr.Error(),
			Suggestion: "Check the flags and try again (see --help)",
			ExitCode:   ExitUsageError,
			Err:        err,
		}
	}

	var apiErr *gateway.APIError

	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		detail := ""
		if errors.As(err, &apiErr) {
			detail = apiErr.Message
		}
		return &CLIError{
			Summary:    "login failed: invalid credentials",
			Detail:     detail,
			Suggestion: "Check your email and password",
			ExitCode:   ExitAuthRequired,
			Err:        err,
		}
	case errors.Is(err, domain.ErrNotAuthenticated),
		errors.Is(err, domain.ErrRefreshTokenMissing),
		errors.Is(err, domain.ErrRefreshTokenExpired),
		errors.Is(err, domain.ErrRefreshFailed),
		errors.Is(err, domain.ErrSessionSuperseded),
		errors.Is(err, domain.ErrUnauthorized):
		return &CLIError{
			Summary:    "not logged in",
			Detail:     err.Error(),
			Suggestion: "Run 'collabctl login'",
			ExitCode:   ExitAuthRequired,
			Err:        err,
		}
	case errors.Is(err, domain.ErrNetwork):
		return &CLIError{
			Summary:    "backend unreachable",
			Detail:     err.Error(),
			Suggestion: "Check api.base_url with 'collabctl config' and your network connection",
			ExitCode:   ExitNetworkError,
			Err:        err,
		}
	case errors.As(err, &apiErr):
		summary := apiErr.Message
		if summary == "" {
			summary = apiErr.Err.Error()
		}
		e := &CLIError{
			Summary:  summary,
			Detail:   fmt.Sprintf("%s returned status %d", apiErr.Op, apiErr.StatusCode),
			ExitCode: ExitAPIError,
			Err:      err,
		}
		if errors.Is(err, domain.ErrForbidden) {
			e.Suggestion = "Your role cannot perform this action; run 'collabctl nav' to see what you can do"
		}
		return e
	}

	return &CLIError{
		Summary:  err.Error(),
		ExitCode: ExitGeneral,
		Err:      err,
	}
}

// FormatError prints a structured error message to stderr
func (p *Printer) FormatError(e *CLIError) {
	if p.useColors {
		color.New(color.FgRed, color.Bold).Fprintf(p.err, "Error: %s\n", e.Summary)
		if e.Detail != "" {
			fmt.Fprintf(p.err, "  Cause: %s\n", e.Detail)
		}
		if e.Suggestion != "" {
			color.New(color.FgCyan).Fprintf(p.err, "  Suggestion: %s\n", e.Suggestion)
		}
	} else {
		fmt.Fprintf(p.err, "[ERROR] %s\n", e.Summary)
		if e.Detail != "" {
			fmt.Fprintf(p.err, "  Cause: %s\n", e.Detail)
		}
		if e.Suggestion != "" {
			fmt.Fprintf(p.err, "  Suggestion: %s\n", e.Suggestion)
		}
	}
}
