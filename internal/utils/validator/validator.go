package validator

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ong-collab/collabctl/internal/domain"
)

// Validator wraps the go-playground validator with the platform's rules.
type Validator struct {
	validator *validator.Validate
}

// New creates a validator that reports fields by their JSON names.
func New() *Validator {
	validate := validator.New()

	registerCustomValidators(validate)

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{validator: validate}
}

// Validate validates a struct and returns a *ValidationError on failure.
func (v *Validator) Validate(i any) error {
	err := v.validator.Struct(i)
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		return NewValidationError(errs)
	}
	return err
}

// ValidateVar validates a single variable.
func (v *Validator) ValidateVar(field any, tag string) error {
	return v.validator.Var(field, tag)
}

// ValidationError maps field paths to user-facing messages.
type ValidationError struct {
	Errors map[string]string `json:"errors"`
}

// Error lists the messages in field order.
func (e ValidationError) Error() string {
	fields := make([]string, 0, len(e.Errors))
	for field := range e.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	messages := make([]string, 0, len(fields))
	for _, field := range fields {
		messages = append(messages, e.Errors[field])
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, ", "))
}

// Fields returns the failing field names, sorted.
func (e ValidationError) Fields() []string {
	fields := make([]string, 0, len(e.Errors))
	for field := range e.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// NewValidationError converts validator errors into messages keyed by the
// field's namespace without the root struct, e.g. "etapas[0].nombre".
func NewValidationError(errs validator.ValidationErrors) *ValidationError {
	out := make(map[string]string, len(errs))

	for _, err := range errs {
		field := err.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		name := err.Field()

		switch err.Tag() {
		case "required":
			out[field] = fmt.Sprintf("%s is required", name)
		case "email":
			out[field] = fmt.Sprintf("%s must be a valid email address", name)
		case "min":
			if err.Kind() == reflect.Slice {
				out[field] = fmt.Sprintf("%s must contain at least %s items", name, err.Param())
			} else {
				out[field] = fmt.Sprintf("%s must be at least %s characters long", name, err.Param())
			}
		case "max":
			out[field] = fmt.Sprintf("%s must be at most %s characters long", name, err.Param())
		case "gte":
			out[field] = fmt.Sprintf("%s must be greater than or equal to %s", name, err.Param())
		case "gtfield":
			out[field] = fmt.Sprintf("%s must be after %s", name, err.Param())
		case "oneof":
			out[field] = fmt.Sprintf("%s must be one of: %s", name, err.Param())
		case "platform_role":
			out[field] = fmt.Sprintf("%s must be MEMBER or COUNCIL", name)
		default:
			out[field] = fmt.Sprintf("%s is invalid", name)
		}
	}

	return &ValidationError{Errors: out}
}

func registerCustomValidators(validate *validator.Validate) {
	_ = validate.RegisterValidation("platform_role", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseRole(fl.Field().String())
		return err == nil
	})
}

// IsValidEmail checks if an email is valid.
func IsValidEmail(email string) bool {
	return New().ValidateVar(email, "required,email") == nil
}

const (
	TagRequired     = "required"
	TagEmail        = "email"
	TagPlatformRole = "platform_role"
)
