package userservice

import (
	stderrors "errors"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidGatewayHeaders   = "auth_invalid_gateway_headers"
	TextCodeInvalidTimestampFormat  = "auth_invalid_timestamp_format"
	TextCodeInvalidGatewaySignature = "auth_invalid_gateway_signature"
	TextCodeAccountNotFound         = "auth_account_not_found"
	TextCodeAccountDisabled         = "auth_account_disabled"
	TextCodeTokenExpired            = "auth_token_expired"
	TextCodeTokenMalformed          = "auth_token_malformed"
)

// ErrInvalidGatewayHeaders is returned when the gateway marker is present but
// required identity headers are missing. Terminal, the request ends 403.
var ErrInvalidGatewayHeaders = errors.New("Invalid gateway headers", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidGatewayHeaders).
	WithCode(errors.CodeForbidden)

// ErrInvalidTimestampFormat is returned when the gateway timestamp header is
// not an integer. Terminal, the request ends 403.
var ErrInvalidTimestampFormat = errors.New("Invalid timestamp format", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidTimestampFormat).
	WithCode(errors.CodeForbidden)

// ErrInvalidGatewaySignature is returned when the HMAC check fails or the
// timestamp falls outside the tolerance window. Terminal, the request ends 403.
var ErrInvalidGatewaySignature = errors.New("Invalid gateway signature", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidGatewaySignature).
	WithCode(errors.CodeForbidden)

// ErrAccountNotFound is returned when a validly signed gateway identity does
// not exist in the store. Terminal, the request ends 403.
var ErrAccountNotFound = errors.New("User account not found", errors.CategoryAuth).
	WithTextCode(TextCodeAccountNotFound).
	WithCode(errors.CodeForbidden)

// ErrAccountDisabled is returned when the account exists but is suspended or
// banned. Terminal, the request ends 403.
var ErrAccountDisabled = errors.New("User account is disabled or suspended", errors.CategoryAuth).
	WithTextCode(TextCodeAccountDisabled).
	WithCode(errors.CodeForbidden)

// ErrTokenExpired is returned when a bearer token is past its expiry.
var ErrTokenExpired = errors.New("token expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned when a bearer token cannot be parsed or its
// signature does not verify.
var ErrTokenMalformed = errors.New("token malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrMalformedGatewayUserID marks a signed gateway identity whose user id is
// not a UUID. Non-terminal, callers log it and fall through to the next
// authentication path.
var ErrMalformedGatewayUserID = stderrors.New("malformed gateway user id")

// ErrNoEmptyString is returned when hashing input is empty.
var ErrNoEmptyString = stderrors.New("cannot hash an empty string")

// IsTerminalAuthError reports whether err must stop the request with a 403
// instead of falling through to the bearer token path.
func IsTerminalAuthError(err error) bool {
	if err == nil {
		return false
	}
	for _, terminal := range []error{
		ErrInvalidGatewayHeaders,
		ErrInvalidTimestampFormat,
		ErrInvalidGatewaySignature,
		ErrAccountNotFound,
		ErrAccountDisabled,
	} {
		if stderrors.Is(err, terminal) {
			return true
		}
	}
	return false
}
