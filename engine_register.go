package authflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Register creates an unverified account and mails it a verification code.
// No tokens are issued; the account cannot log in until [Engine.VerifyEmail]
// succeeds.
//
// A mailer failure is reported as [ErrMailDelivery]; the account stays
// created and the code can be re-sent with [Engine.ResendVerificationCode].
func (e *Engine) Register(ctx context.Context, input RegisterInput) (*RegisterResult, error) {
	if e == nil || e.passwordHash == nil || e.codes == nil {
		return nil, ErrEngineNotReady
	}
	email := normalizeEmail(input.Email)

	if _, err := e.directory.FindByEmail(ctx, email); err == nil {
		e.metricInc(MetricRegisterDuplicate)
		e.emitAudit(ctx, auditEventRegisterDuplicate, false, "", email, ErrDuplicateEmail, nil)
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, ErrAccountNotFound) {
		return nil, err
	}

	hash, err := e.passwordHash.Hash(input.Password)
	if err != nil {
		e.metricInc(MetricRegisterFailure)
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", email, ErrPasswordPolicy, nil)
		return nil, fmt.Errorf("%w: %v", ErrPasswordPolicy, err)
	}

	code, err := e.codes.Generate()
	if err != nil {
		return nil, err
	}

	acct := &Account{
		ID:                        uuid.NewString(),
		Email:                     email,
		PasswordHash:              hash,
		FirstName:                 input.FirstName,
		LastName:                  input.LastName,
		VerificationCode:          code,
		VerificationCodeExpiresAt: e.codes.ExpiryFrom(e.now()),
		CreatedAt:                 e.now(),
	}

	created, err := e.directory.Create(ctx, acct)
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			e.metricInc(MetricRegisterDuplicate)
			e.emitAudit(ctx, auditEventRegisterDuplicate, false, "", email, ErrDuplicateEmail, nil)
			return nil, ErrDuplicateEmail
		}
		e.metricInc(MetricRegisterFailure)
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", email, err, nil)
		return nil, err
	}

	if err := e.mailer.SendVerificationCode(ctx, created.Email, created.FirstName, code); err != nil {
		e.metricInc(MetricMailFailure)
		e.emitAudit(ctx, auditEventRegisterFailure, false, created.ID, email, ErrMailDelivery, nil)
		return nil, fmt.Errorf("%w: %v", ErrMailDelivery, err)
	}

	e.metricInc(MetricRegisterSuccess)
	e.metricInc(MetricVerificationCodeSent)
	e.emitAudit(ctx, auditEventRegisterSuccess, true, created.ID, email, nil, nil)
	e.emitAudit(ctx, auditEventVerificationCodeSent, true, created.ID, email, nil, nil)

	return &RegisterResult{User: profileOf(created)}, nil
}

// ResendVerificationCode replaces the pending verification challenge with a
// fresh code and mails it. The previous code stops working immediately.
func (e *Engine) ResendVerificationCode(ctx context.Context, email string) error {
	if e == nil || e.codes == nil {
		return ErrEngineNotReady
	}
	email = normalizeEmail(email)

	acct, err := e.directory.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if acct.EmailVerified {
		return ErrAlreadyVerified
	}

	code, err := e.codes.Generate()
	if err != nil {
		return err
	}

	acct.VerificationCode = code
	acct.VerificationCodeExpiresAt = e.codes.ExpiryFrom(e.now())

	updated, err := e.directory.Update(ctx, acct)
	if err != nil {
		return err
	}

	if err := e.mailer.SendVerificationCode(ctx, updated.Email, updated.FirstName, code); err != nil {
		e.metricInc(MetricMailFailure)
		return fmt.Errorf("%w: %v", ErrMailDelivery, err)
	}

	e.metricInc(MetricVerificationCodeSent)
	e.emitAudit(ctx, auditEventVerificationCodeResent, true, updated.ID, email, nil, nil)

	return nil
}
