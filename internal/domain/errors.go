package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrEmptyCart  = errors.New("cart is empty")
	ErrEmailTaken = errors.New("an account is already registered with this email address")
	ErrBadCreds   = errors.New("invalid email or password")
	ErrNotPaid    = errors.New("checkout session is not paid")
)

// ValidationError reports malformed input. It is returned before any state changes.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string { return fmt.Sprintf("%s %s", e.Field, e.Msg) }

func Invalid(field, msg string) error { return &ValidationError{Field: field, Msg: msg} }

// GatewayUnavailableError wraps any failure talking to the payment provider.
// The visitor may retry; nothing retries automatically.
type GatewayUnavailableError struct {
	Err error
}

func (e *GatewayUnavailableError) Error() string {
	if e.Err == nil {
		return "payment gateway unavailable"
	}
	return "payment gateway unavailable: " + e.Err.Error()
}

func (e *GatewayUnavailableError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsGatewayUnavailable(err error) bool {
	var g *GatewayUnavailableError
	return errors.As(err, &g)
}
