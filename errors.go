package authd

import "errors"

var (
	ErrMissingFields       = errors.New("missing required fields")
	ErrEmailTaken          = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidOrExpiredOTP = errors.New("invalid or expired otp")
	ErrEmailNotVerified    = errors.New("email not verified")
	ErrUserNotFound        = errors.New("user not found")
	ErrNoPendingOTP        = errors.New("no pending otp for account")
	ErrOTPMismatch         = errors.New("otp mismatch")
	ErrOTPExpired          = errors.New("otp expired")
	ErrPasswordPolicy      = errors.New("password policy violation")
	ErrTokenMissing        = errors.New("token missing")
	ErrTokenInvalid        = errors.New("invalid or expired token")
	ErrTokenRevoked        = errors.New("token revoked")
	ErrTokenPayload        = errors.New("invalid token payload")
	ErrMailDelivery        = errors.New("mail delivery failed")
	ErrStoreUnavailable    = errors.New("store unavailable")
	ErrEngineNotReady      = errors.New("engine not initialized")
	ErrPreverifiedDisabled = errors.New("preverified registration disabled")
)
