package authflow

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ferrylane/authflow/otp"
	"github.com/ferrylane/authflow/password"
	"github.com/ferrylane/authflow/refresh"
	"github.com/ferrylane/authflow/token"
)

// Engine orchestrates the account-authentication flows: registration with
// email verification, login, token refresh, and password reset. Construct
// one with [Builder.Build]; a zero Engine is not usable.
//
// All methods are safe for concurrent use.
type Engine struct {
	config       Config
	directory    Directory
	mailer       Mailer
	tokens       *token.Signer
	passwordHash *password.Bcrypt
	codes        *otp.Generator
	refreshStore *refresh.Store
	audit        *auditDispatcher
	metrics      *Metrics
}

// Close stops the audit dispatcher after draining buffered events. The
// Engine must not be used after Close.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were discarded under
// backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of all engine metrics.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) now() time.Time {
	return time.Now()
}

// Emails are case-sensitive as stored; only surrounding whitespace is
// stripped before lookup.
func normalizeEmail(email string) string {
	return strings.TrimSpace(email)
}

// issueTokenPair signs both token classes and registers the refresh token.
// No tokens are returned when the registry write fails; a pair the engine
// cannot later revoke must not reach the caller.
func (e *Engine) issueTokenPair(ctx context.Context, acct *Account) (string, string, error) {
	access, err := e.tokens.SignAccess(acct.ID, acct.Email)
	if err != nil {
		return "", "", err
	}

	refreshToken, err := e.tokens.SignRefresh(acct.ID, acct.Email)
	if err != nil {
		return "", "", err
	}

	rec := &refresh.Record{
		AccountID: acct.ID,
		ExpiresAt: time.Now().Add(e.tokens.RefreshTTL()).Unix(),
	}
	if err := e.refreshStore.Save(ctx, refreshToken, rec); err != nil {
		return "", "", err
	}

	return access, refreshToken, nil
}

// Login verifies the credentials and mints a token pair. Unknown email and
// wrong password both yield [ErrInvalidCredentials]; an unverified account
// yields [ErrEmailNotVerified].
//
// Login may return an error when input validation, dependency calls, or
// security checks fail.
func (e *Engine) Login(ctx context.Context, email, plaintext string) (*SessionResult, error) {
	if e == nil || e.passwordHash == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}
	email = normalizeEmail(email)

	acct, err := e.directory.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			e.metricInc(MetricLoginFailure)
			e.emitAudit(ctx, auditEventLoginFailure, false, "", email, ErrInvalidCredentials, func() map[string]string {
				return map[string]string{"reason": "account_not_found"}
			})
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := e.passwordHash.Verify(plaintext, acct.PasswordHash)
	if err != nil || !ok {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, acct.ID, email, ErrInvalidCredentials, func() map[string]string {
			return map[string]string{"reason": "password_mismatch"}
		})
		return nil, ErrInvalidCredentials
	}

	if !acct.EmailVerified {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, acct.ID, email, ErrEmailNotVerified, nil)
		return nil, ErrEmailNotVerified
	}

	access, refreshToken, err := e.issueTokenPair(ctx, acct)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, acct.ID, email, err, nil)
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, acct.ID, email, nil, nil)

	return &SessionResult{
		AccessToken:  access,
		RefreshToken: refreshToken,
		User:         profileOf(acct),
	}, nil
}

// Logout revokes the presented refresh token. Logging out an unknown or
// already-revoked token is a no-op.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	if e == nil || e.refreshStore == nil {
		return ErrEngineNotReady
	}

	if err := e.refreshStore.Delete(ctx, refreshToken); err != nil {
		return err
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, "", "", nil, nil)

	return nil
}

// Authenticate resolves an access token to the account behind it. The
// account is re-fetched so that a deleted or still-unverified account is
// rejected even while its token is cryptographically valid.
//
// Every rejection is reported as [ErrUnauthorized].
func (e *Engine) Authenticate(ctx context.Context, accessToken string) (*Identity, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}

	start := time.Now()
	defer func() {
		if e.metrics != nil {
			e.metrics.Observe(MetricAuthenticateLatency, time.Since(start))
		}
	}()

	claims, err := e.tokens.VerifyAccess(accessToken)
	if err != nil {
		e.metricInc(MetricAuthenticateFailure)
		return nil, ErrUnauthorized
	}

	acct, err := e.directory.FindByID(ctx, claims.Subject)
	if err != nil {
		e.metricInc(MetricAuthenticateFailure)
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	if !acct.EmailVerified {
		e.metricInc(MetricAuthenticateFailure)
		return nil, ErrUnauthorized
	}

	e.metricInc(MetricAuthenticateSuccess)

	return &Identity{
		AccountID: acct.ID,
		Email:     acct.Email,
	}, nil
}
