package authflow

import (
	"context"
	"time"
)

// Account is the canonical account record exchanged with the [Directory].
// One-time verification and reset codes live on the record itself, so the
// Directory is the single source of truth for pending challenges.
//
// A zero VerificationCode (or ResetPasswordCode) means no challenge is
// pending for that flow.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string

	EmailVerified bool

	VerificationCode          string
	VerificationCodeExpiresAt time.Time

	ResetPasswordCode          string
	ResetPasswordCodeExpiresAt time.Time

	CreatedAt time.Time
}

// HasPendingVerification reports whether an email-verification challenge is
// outstanding, regardless of whether it has expired.
func (a *Account) HasPendingVerification() bool {
	return a != nil && a.VerificationCode != ""
}

// HasPendingReset reports whether a password-reset challenge is outstanding,
// regardless of whether it has expired.
func (a *Account) HasPendingReset() bool {
	return a != nil && a.ResetPasswordCode != ""
}

// Directory is the primary interface that callers must implement to
// integrate authflow with their account database. Implementations return
// [ErrAccountNotFound] for missing records and [ErrDuplicateEmail] when a
// create or update collides on email.
type Directory interface {
	FindByID(ctx context.Context, id string) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	Create(ctx context.Context, acct *Account) (*Account, error)
	Update(ctx context.Context, acct *Account) (*Account, error)
	Delete(ctx context.Context, id string) error
}

// Mailer delivers the engine's outbound mail. Implementations own templating
// and transport; the engine passes plaintext codes and never retries.
type Mailer interface {
	SendVerificationCode(ctx context.Context, email, name, code string) error
	SendWelcome(ctx context.Context, email, name string) error
	SendPasswordResetCode(ctx context.Context, email, name, code string) error
}

// Profile is the public projection of an [Account]. Credential hashes and
// pending codes are never included.
type Profile struct {
	ID            string
	Email         string
	FirstName     string
	LastName      string
	EmailVerified bool
	CreatedAt     time.Time
}

// Identity is returned by [Engine.Authenticate] for a valid access token.
type Identity struct {
	AccountID string
	Email     string
}

// RegisterInput is the input for [Engine.Register].
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// RegisterResult is returned by [Engine.Register]. No tokens are issued at
// registration; the account must verify its email first.
type RegisterResult struct {
	User Profile
}

// SessionResult is returned by [Engine.Login]. It carries the freshly minted
// token pair and the account profile.
type SessionResult struct {
	AccessToken  string
	RefreshToken string
	User         Profile
}

// RefreshResult is returned by [Engine.Refresh]. RefreshToken echoes the
// presented token; refresh tokens are not rotated.
type RefreshResult struct {
	AccessToken  string
	RefreshToken string
}

func profileOf(acct *Account) Profile {
	return Profile{
		ID:            acct.ID,
		Email:         acct.Email,
		FirstName:     acct.FirstName,
		LastName:      acct.LastName,
		EmailVerified: acct.EmailVerified,
		CreatedAt:     acct.CreatedAt,
	}
}
