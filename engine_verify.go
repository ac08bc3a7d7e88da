package authflow

import (
	"context"
	"crypto/subtle"
	"log"
	"time"
)

// VerifyEmail consumes the pending verification challenge, activates the
// account, and mints its first token pair. The code is compared in constant
// time.
//
// The welcome mail is best effort: a mailer failure is logged and audited
// but never rolls back a completed verification.
func (e *Engine) VerifyEmail(ctx context.Context, email, code string) (*SessionResult, error) {
	if e == nil || e.directory == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}
	email = normalizeEmail(email)

	acct, err := e.directory.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if acct.EmailVerified {
		return nil, ErrAlreadyVerified
	}
	if !acct.HasPendingVerification() {
		e.metricInc(MetricEmailVerificationFailure)
		e.emitAudit(ctx, auditEventEmailVerificationFailure, false, acct.ID, email, ErrNoCodePending, nil)
		return nil, ErrNoCodePending
	}
	if subtle.ConstantTimeCompare([]byte(acct.VerificationCode), []byte(code)) != 1 {
		e.metricInc(MetricEmailVerificationFailure)
		e.emitAudit(ctx, auditEventEmailVerificationFailure, false, acct.ID, email, ErrCodeMismatch, nil)
		return nil, ErrCodeMismatch
	}
	if e.now().After(acct.VerificationCodeExpiresAt) {
		e.metricInc(MetricEmailVerificationFailure)
		e.emitAudit(ctx, auditEventEmailVerificationFailure, false, acct.ID, email, ErrCodeExpired, nil)
		return nil, ErrCodeExpired
	}

	acct.EmailVerified = true
	acct.VerificationCode = ""
	acct.VerificationCodeExpiresAt = time.Time{}

	updated, err := e.directory.Update(ctx, acct)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricEmailVerified)
	e.emitAudit(ctx, auditEventEmailVerified, true, updated.ID, email, nil, nil)

	if err := e.mailer.SendWelcome(ctx, updated.Email, updated.FirstName); err != nil {
		log.Printf("authflow: welcome mail to %s failed: %v", updated.Email, err)
		e.metricInc(MetricMailFailure)
		e.emitAudit(ctx, auditEventWelcomeMailFailed, false, updated.ID, email, ErrMailDelivery, nil)
	}

	access, refreshToken, err := e.issueTokenPair(ctx, updated)
	if err != nil {
		return nil, err
	}

	return &SessionResult{
		AccessToken:  access,
		RefreshToken: refreshToken,
		User:         profileOf(updated),
	}, nil
}
