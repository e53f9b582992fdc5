package apperrors

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Kind is the stable error discriminator returned to clients as error_type.
type Kind string

const (
	KindCredentialsMissing     Kind = "CREDENTIALS_MISSING"
	KindAuthorizationDenied    Kind = "AUTHORIZATION_DENIED"
	KindInvalidCallback        Kind = "INVALID_CALLBACK"
	KindTokenExpiredLocal      Kind = "TOKEN_EXPIRED"
	KindProviderExchangeFailed Kind = "PROVIDER_EXCHANGE_FAILED"
	KindNoEligibleAccount      Kind = "NO_ELIGIBLE_ACCOUNT_FOUND"
	KindAccountNotConnected    Kind = "ACCOUNT_NOT_CONNECTED"
	KindReconnectRequired      Kind = "RECONNECT_REQUIRED"
	KindUnsupportedOperation   Kind = "UNSUPPORTED_OPERATION"
	KindUnknownPlatform        Kind = "UNKNOWN_PLATFORM"
	KindInternal               Kind = "INTERNAL_ERROR"
)

// Error carries a Kind plus a human-readable message. The wrapped cause is
// kept for logs only and never serialized, so provider responses containing
// tokens cannot leak through the API surface.
type Error struct {
	Kind    Kind   `json:"error_type"`
	Message string `json:"error"`
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

func CredentialsMissing(platform string) *Error {
	return New(KindCredentialsMissing, fmt.Sprintf("%s app credentials are not configured", platform))
}

func AuthorizationDenied(platform string) *Error {
	return New(KindAuthorizationDenied, fmt.Sprintf("authorization for %s was denied", platform))
}

func InvalidCallback(reason string) *Error {
	return New(KindInvalidCallback, fmt.Sprintf("invalid callback: %s", reason))
}

func TokenExpiredLocal() *Error {
	return New(KindTokenExpiredLocal, "completion token has expired, restart the connection flow")
}

func ExchangeFailed(platform string, cause error) *Error {
	return Wrap(KindProviderExchangeFailed, fmt.Sprintf("token exchange with %s failed", platform), cause)
}

func NoEligibleAccount(message string) *Error {
	return New(KindNoEligibleAccount, message)
}

func AccountNotConnected(platform string) *Error {
	return New(KindAccountNotConnected, fmt.Sprintf("no %s account is connected", platform))
}

func ReconnectRequired(platform string) *Error {
	return New(KindReconnectRequired, fmt.Sprintf("%s credentials are expired or revoked, reconnect the account", platform))
}

func UnsupportedOperation(platform, op string) *Error {
	return New(KindUnsupportedOperation, fmt.Sprintf("%s does not support %s", platform, op))
}

func UnknownPlatform(platform string) *Error {
	return New(KindUnknownPlatform, fmt.Sprintf("unknown platform: %s", platform))
}

func Internal(message string) *Error {
	return New(KindInternal, message)
}

// AsError extracts an *Error from an error chain.
func AsError(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func KindOf(err error) Kind {
	if appErr, ok := AsError(err); ok {
		return appErr.Kind
	}
	return KindInternal
}

// HTTPStatus maps a Kind to its response status per the error design.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindCredentialsMissing:
		return fiber.StatusServiceUnavailable
	case KindAuthorizationDenied:
		return fiber.StatusBadRequest
	case KindInvalidCallback, KindTokenExpiredLocal, KindNoEligibleAccount,
		KindUnsupportedOperation, KindUnknownPlatform:
		return fiber.StatusBadRequest
	case KindProviderExchangeFailed:
		return fiber.StatusBadGateway
	case KindAccountNotConnected:
		return fiber.StatusForbidden
	case KindReconnectRequired:
		return fiber.StatusUnauthorized
	default:
		return fiber.StatusInternalServerError
	}
}
