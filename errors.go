package auth

import (
	"errors"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// TextCodeTokenExpired marks session credentials past their expiry
const TextCodeTokenExpired = "TOKEN_EXPIRED"

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = goerrors.New("identity not found", goerrors.CategoryNotFound).
	WithTextCode("IDENTITY_NOT_FOUND")

// ErrAccountNotConfirmed rejects logins for accounts that never followed
// the confirmation link. Checked before the password is compared.
var ErrAccountNotConfirmed = goerrors.New("account has not been confirmed", goerrors.CategoryAuth).
	WithTextCode("ACCOUNT_NOT_CONFIRMED")

// ErrMismatchedHashAndPassword is returned when the password does not
// match the stored hash
var ErrMismatchedHashAndPassword = goerrors.New("mismatched hash and password", goerrors.CategoryAuth).
	WithTextCode("INVALID_CREDENTIALS")

// ErrTokenNotFound covers both never-issued and already-consumed opaque
// tokens; we deliberately do not distinguish the two cases.
var ErrTokenNotFound = goerrors.New("invalid or already used token", goerrors.CategoryNotFound).
	WithCode(goerrors.CodeNotFound).
	WithTextCode("TOKEN_NOT_FOUND")

// ErrEmailTaken is the conflict error for duplicate registrations
var ErrEmailTaken = goerrors.New("email is already registered", goerrors.CategoryConflict).
	WithCode(goerrors.CodeConflict).
	WithTextCode("EMAIL_TAKEN")

// ErrNoEmptyString rejects empty values where a secret is required
var ErrNoEmptyString = goerrors.New("value must not be empty", goerrors.CategoryBadInput)

// ErrTokenExpired is the rich error for expired session credentials
var ErrTokenExpired = goerrors.New("Token expired", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeTokenExpired)

// ErrTokenMalformed is the rich error for undecodable session credentials
var ErrTokenMalformed = goerrors.New("Invalid or malformed token", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode("TOKEN_MALFORMED")

// ErrUnableToFindSession is the error when our reequest has no cookie
var ErrUnableToFindSession = errors.New("unable to find session")

// ErrUnableToDecodeSession unable to decode JWT from session cookie
var ErrUnableToDecodeSession = errors.New("unable to decode session")

// ErrUnableToMapClaims unable to get claims from token
var ErrUnableToMapClaims = errors.New("unable to map claims")

// ErrUnableToParseData parse error
var ErrUnableToParseData = errors.New("unable to parse data")

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
