package auth

import (
	"net/http"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeValidation         = "validation_error"
	TextCodeConflict           = "conflict"
	TextCodeTokenError         = "token_error"
	TextCodeTokenExpired       = "token_expired"
	TextCodeTokenInvalid       = "token_invalid"
	TextCodeInvalidCredentials = "invalid_credentials"
	TextCodeEmailUnverified    = "email_unverified"
	TextCodeUnauthenticated    = "unauthenticated"
	TextCodeRateLimited        = "rate_limited"
	TextCodeInternal           = "internal_error"
)

// Messages returned to API callers.
const (
	MsgAllFieldsRequired     = "All fields are required"
	MsgEmailInUse            = "Email already in use"
	MsgNoTokenProvided       = "No token provided"
	MsgInvalidVerification   = "Invalid or expired verification link."
	MsgEmailAlreadyVerified  = "Email already verified."
	MsgInvalidCredentials    = "Invalid credentials"
	MsgVerifyBeforeLogin     = "Please verify your email before logging in."
	MsgNoSessionToken        = "Unauthorized - No Token Provided"
	MsgInvalidSessionToken   = "Unauthorized - Invalid Token"
	MsgAccountNotFound       = "User not found"
	MsgProfilePicRequired    = "Profile pic is required"
	MsgTooManyRequests       = "Too many requests, try again later"
	MsgInternalServerError   = "Internal Server Error"
	MsgVerificationEmailSent = "Verification email sent"
	MsgAccountCreated        = "Email verified. Account created successfully!"
	MsgLoggedOut             = "Logged out successfully"
)

// ErrValidation is returned when required input is missing or malformed.
var ErrValidation = errors.New(MsgAllFieldsRequired, errors.CategoryValidation).
	WithTextCode(TextCodeValidation).
	WithCode(errors.CodeBadRequest)

// ErrConflict is returned when an email is already registered or verified.
var ErrConflict = errors.New(MsgEmailInUse, errors.CategoryConflict).
	WithTextCode(TextCodeConflict).
	WithCode(errors.CodeBadRequest)

// ErrTokenError is what callers see for any verification token failure.
var ErrTokenError = errors.New(MsgInvalidVerification, errors.CategoryBadInput).
	WithTextCode(TextCodeTokenError).
	WithCode(errors.CodeBadRequest)

// ErrTokenExpired is returned by the codec for a well signed token past its expiry.
var ErrTokenExpired = errors.New("token is expired", errors.CategoryBadInput).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeBadRequest)

// ErrTokenInvalid is returned by the codec for bad signatures and malformed tokens.
var ErrTokenInvalid = errors.New("token is invalid", errors.CategoryBadInput).
	WithTextCode(TextCodeTokenInvalid).
	WithCode(errors.CodeBadRequest)

// ErrInvalidCredentials covers both unknown email and wrong password.
var ErrInvalidCredentials = errors.New(MsgInvalidCredentials, errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeBadRequest)

// ErrUnverified is returned on login for accounts that did not verify their email.
var ErrUnverified = errors.New(MsgVerifyBeforeLogin, errors.CategoryAuth).
	WithTextCode(TextCodeEmailUnverified).
	WithCode(errors.CodeUnauthorized)

// ErrUnauthenticated is returned by the AuthGate.
var ErrUnauthenticated = errors.New(MsgInvalidSessionToken, errors.CategoryAuth).
	WithTextCode(TextCodeUnauthenticated).
	WithCode(errors.CodeUnauthorized)

// ErrRateLimited is returned when a client exceeds the request budget.
var ErrRateLimited = errors.New(MsgTooManyRequests, errors.CategoryRateLimit).
	WithTextCode(TextCodeRateLimited).
	WithCode(http.StatusTooManyRequests)

// ErrInternal is the only shape internal failures take when they cross the API.
var ErrInternal = errors.New(MsgInternalServerError, errors.CategoryInternal).
	WithTextCode(TextCodeInternal).
	WithCode(errors.CodeInternal)

// ErrNoEmptyString is returned when hashing an empty password.
var ErrNoEmptyString = errors.New("password must not be empty", errors.CategoryValidation).
	WithTextCode(TextCodeValidation).
	WithCode(errors.CodeBadRequest)

// ErrMismatchedHashAndPassword is returned when a password does not match its hash.
var ErrMismatchedHashAndPassword = errors.New("password does not match", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeBadRequest)

// withMessage clones a sentinel and replaces the user facing message.
func withMessage(sentinel *errors.Error, msg string) *errors.Error {
	err := sentinel.Clone()
	err.Message = msg
	return err
}

// internalError wraps an unexpected collaborator failure. The cause is kept
// for logging; only ErrInternal's message is rendered.
func internalError(err error, msg string) *errors.Error {
	return errors.Wrap(err, errors.CategoryInternal, msg).
		WithTextCode(TextCodeInternal).
		WithCode(errors.CodeInternal)
}

// IsTokenExpiredError reports whether err is a codec expiry failure.
func IsTokenExpiredError(err error) bool {
	return HasTextCode(err, TextCodeTokenExpired)
}

// IsTokenInvalidError reports whether err is a codec signature or format failure.
func IsTokenInvalidError(err error) bool {
	return HasTextCode(err, TextCodeTokenInvalid)
}

// HasTextCode reports whether err is a rich error carrying the given text code.
func HasTextCode(err error, code string) bool {
	richErr, ok := asRichError(err)
	return ok && richErr.TextCode == code
}

func asRichError(err error) (*errors.Error, bool) {
	if err == nil {
		return nil, false
	}
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr, true
	}
	return nil, false
}

func textCodeOf(err error) string {
	if richErr, ok := asRichError(err); ok {
		return richErr.TextCode
	}
	return ""
}
