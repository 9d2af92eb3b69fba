package authd

import (
	"context"
	"errors"

	"github.com/naviriti/authd/jwt"
)

// Login checks credentials and issues a session token. Unknown email and
// wrong password both return ErrInvalidCredentials; only an account whose
// password matched is told it is still unverified.
func (e *Engine) Login(ctx context.Context, email, plainPassword string) (*LoginResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if email == "" || plainPassword == "" {
		return nil, ErrMissingFields
	}

	email = normalizeEmail(email)

	record, err := e.users.GetByEmail(ctx, email)
	if err != nil {
		mapped := mapStoreError(err)
		if errors.Is(mapped, ErrUserNotFound) {
			mapped = ErrInvalidCredentials
		}
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLogin, "", email, false, mapped)
		return nil, mapped
	}

	if !e.passwordHash.Verify(plainPassword, record.PasswordHash) {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLogin, record.ID, email, false, ErrInvalidCredentials)
		return nil, ErrInvalidCredentials
	}

	if !record.Verified {
		e.metricInc(MetricLoginUnverified)
		e.emitAudit(ctx, auditEventLogin, record.ID, email, false, ErrEmailNotVerified)
		return nil, ErrEmailNotVerified
	}

	token, expiresAt, err := e.jwtManager.Issue(record.ID, record.Email)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLogin, record.ID, email, false, err)
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLogin, record.ID, email, true, nil)

	return &LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		TTL:       e.jwtManager.TTL(),
	}, nil
}

// Logout revokes the presented token until its natural expiry. The expiry
// claim is read without signature verification; revoking a token we could
// not have issued is harmless, while refusing to revoke a valid one is
// not. A token whose payload cannot be decoded at all is rejected.
func (e *Engine) Logout(ctx context.Context, token string) error {
	if err := e.ready(); err != nil {
		return err
	}
	if token == "" {
		return ErrTokenMissing
	}

	expiresAt, err := jwt.ExpiryUnverified(token)
	switch {
	case errors.Is(err, jwt.ErrNoExpiry):
		// No expiry to align with; hold for a full token lifetime.
		expiresAt = e.now().Add(e.config.JWT.TTL)
	case err != nil:
		e.emitAudit(ctx, auditEventLogout, "", "", false, ErrTokenInvalid)
		return ErrTokenInvalid
	}

	if err := e.denylist.Add(ctx, token, expiresAt); err != nil {
		mapped := mapStoreError(err)
		e.emitAudit(ctx, auditEventLogout, "", "", false, mapped)
		return mapped
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, "", "", true, nil)

	return nil
}

// Validate authenticates a token and returns the account it belongs to.
// The denylist is consulted before the signature: a revoked token stays
// revoked no matter how valid it looks.
func (e *Engine) Validate(ctx context.Context, token string) (*Identity, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if token == "" {
		return nil, ErrTokenMissing
	}

	revoked, err := e.denylist.Contains(ctx, token)
	if err != nil {
		e.metricInc(MetricValidateFailure)
		return nil, mapStoreError(err)
	}
	if revoked {
		e.metricInc(MetricValidateRevoked)
		e.emitAudit(ctx, auditEventValidate, "", "", false, ErrTokenRevoked)
		return nil, ErrTokenRevoked
	}

	claims, err := e.jwtManager.Parse(token)
	if err != nil {
		e.metricInc(MetricValidateFailure)
		e.emitAudit(ctx, auditEventValidate, "", "", false, ErrTokenInvalid)
		return nil, ErrTokenInvalid
	}
	if claims.Subject == "" {
		e.metricInc(MetricValidateFailure)
		return nil, ErrTokenPayload
	}

	record, err := e.users.GetByID(ctx, claims.Subject)
	if err != nil {
		mapped := mapStoreError(err)
		e.metricInc(MetricValidateFailure)
		e.emitAudit(ctx, auditEventValidate, claims.Subject, claims.Email, false, mapped)
		return nil, mapped
	}

	e.metricInc(MetricValidateSuccess)

	return identityFromRecord(record), nil
}
