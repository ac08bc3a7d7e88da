package authflow

import "errors"

var (
	// ErrDuplicateEmail is returned when registration targets an email that
	// already has an account.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrAccountNotFound is returned when no account matches the identifier.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAlreadyVerified is returned when a verification flow targets an
	// account whose email is already verified.
	ErrAlreadyVerified = errors.New("email already verified")
	// ErrNoCodePending is returned when a code is presented but no challenge
	// is outstanding for the flow.
	ErrNoCodePending = errors.New("no code pending")
	// ErrCodeMismatch is returned when the presented code does not match the
	// pending challenge.
	ErrCodeMismatch = errors.New("code mismatch")
	// ErrCodeExpired is returned when the pending challenge has lapsed.
	ErrCodeExpired = errors.New("code expired")
	// ErrInvalidCredentials is returned on login for an unknown email or a
	// wrong password. The two cases are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailNotVerified is returned on login before the account has
	// completed email verification.
	ErrEmailNotVerified = errors.New("email not verified")
	// ErrUnauthorized is returned for any token the engine will not honor.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrPasswordPolicy is returned when a plaintext password fails the
	// minimum requirements.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrMailDelivery wraps mailer failures on flows where delivery is
	// required to proceed.
	ErrMailDelivery = errors.New("mail delivery failed")
	// ErrEngineNotReady is returned when an Engine method is called on an
	// incompletely constructed engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
