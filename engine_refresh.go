package authflow

import (
	"context"
	"errors"

	"github.com/ferrylane/authflow/refresh"
)

// Refresh exchanges a refresh token for a fresh access token. The refresh
// token itself is not rotated; the presented token is echoed back and stays
// valid until its own expiry or revocation.
//
// A token must pass both gates to be honored: its signature and expiry
// claim, and its presence in the registry. Every rejection is reported as
// [ErrUnauthorized]; only registry transport failures surface as-is.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	if e == nil || e.tokens == nil || e.refreshStore == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", "", ErrUnauthorized, func() map[string]string {
			return map[string]string{"reason": "token_invalid"}
		})
		return nil, ErrUnauthorized
	}

	rec, err := e.refreshStore.Get(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, refresh.ErrRedisUnavailable) {
			return nil, err
		}
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, claims.Subject, claims.Email, ErrUnauthorized, func() map[string]string {
			return map[string]string{"reason": "not_on_record"}
		})
		return nil, ErrUnauthorized
	}

	if rec.AccountID != claims.Subject {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, claims.Subject, claims.Email, ErrUnauthorized, func() map[string]string {
			return map[string]string{"reason": "owner_mismatch"}
		})
		return nil, ErrUnauthorized
	}

	access, err := e.tokens.SignAccess(claims.Subject, claims.Email)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, claims.Subject, claims.Email, nil, nil)

	return &RefreshResult{
		AccessToken:  access,
		RefreshToken: refreshToken,
	}, nil
}
