package authflow

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"
)

// ForgotPassword starts a password-reset challenge for the account behind
// email. An unknown email returns nil so callers cannot probe which
// addresses hold accounts.
//
// A mailer failure on a known account is reported as [ErrMailDelivery]; the
// challenge stays pending and the caller may retry.
func (e *Engine) ForgotPassword(ctx context.Context, email string) error {
	if e == nil || e.codes == nil {
		return ErrEngineNotReady
	}
	email = normalizeEmail(email)

	acct, err := e.directory.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil
		}
		return err
	}

	code, err := e.codes.Generate()
	if err != nil {
		return err
	}

	acct.ResetPasswordCode = code
	acct.ResetPasswordCodeExpiresAt = e.codes.ExpiryFrom(e.now())

	updated, err := e.directory.Update(ctx, acct)
	if err != nil {
		return err
	}

	if err := e.mailer.SendPasswordResetCode(ctx, updated.Email, updated.FirstName, code); err != nil {
		e.metricInc(MetricMailFailure)
		return fmt.Errorf("%w: %v", ErrMailDelivery, err)
	}

	e.metricInc(MetricPasswordResetRequest)
	e.emitAudit(ctx, auditEventPasswordResetRequest, true, updated.ID, email, nil, nil)

	return nil
}

// ResetPassword consumes the pending reset challenge and installs the new
// password. On success every outstanding refresh token the account holds is
// revoked, forcing re-authentication everywhere.
func (e *Engine) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if e == nil || e.passwordHash == nil || e.refreshStore == nil {
		return ErrEngineNotReady
	}
	email = normalizeEmail(email)

	acct, err := e.directory.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !acct.HasPendingReset() {
		e.metricInc(MetricPasswordResetConfirmFailure)
		e.emitAudit(ctx, auditEventPasswordResetFailure, false, acct.ID, email, ErrNoCodePending, nil)
		return ErrNoCodePending
	}
	if subtle.ConstantTimeCompare([]byte(acct.ResetPasswordCode), []byte(code)) != 1 {
		e.metricInc(MetricPasswordResetConfirmFailure)
		e.emitAudit(ctx, auditEventPasswordResetFailure, false, acct.ID, email, ErrCodeMismatch, nil)
		return ErrCodeMismatch
	}
	if e.now().After(acct.ResetPasswordCodeExpiresAt) {
		e.metricInc(MetricPasswordResetConfirmFailure)
		e.emitAudit(ctx, auditEventPasswordResetFailure, false, acct.ID, email, ErrCodeExpired, nil)
		return ErrCodeExpired
	}

	hash, err := e.passwordHash.Hash(newPassword)
	if err != nil {
		e.metricInc(MetricPasswordResetConfirmFailure)
		e.emitAudit(ctx, auditEventPasswordResetFailure, false, acct.ID, email, ErrPasswordPolicy, nil)
		return fmt.Errorf("%w: %v", ErrPasswordPolicy, err)
	}

	acct.PasswordHash = hash
	acct.ResetPasswordCode = ""
	acct.ResetPasswordCodeExpiresAt = time.Time{}

	updated, err := e.directory.Update(ctx, acct)
	if err != nil {
		return err
	}

	if err := e.refreshStore.DeleteAllForAccount(ctx, updated.ID); err != nil {
		return err
	}

	e.metricInc(MetricPasswordResetConfirmSuccess)
	e.emitAudit(ctx, auditEventPasswordResetConfirm, true, updated.ID, email, nil, nil)

	return nil
}
