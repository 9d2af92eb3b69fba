package authd

import (
	"context"
	"errors"

	"github.com/naviriti/authd/jwt"
)

// GetIdentity loads the account view for a user id.
func (e *Engine) GetIdentity(ctx context.Context, userID string) (*Identity, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, ErrMissingFields
	}

	record, err := e.users.GetByID(ctx, userID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return identityFromRecord(record), nil
}

// UpdateProfile changes the account's name and/or password. Nil pointers
// leave the corresponding field untouched; at least one must be set.
// Email is immutable here, since changing it would need a re-verification
// flow of its own.
func (e *Engine) UpdateProfile(ctx context.Context, userID string, name, newPassword *string) (*Identity, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if userID == "" || (name == nil && newPassword == nil) {
		return nil, ErrMissingFields
	}

	var passwordHash *string
	if newPassword != nil {
		hash, err := e.hashPassword(*newPassword)
		if err != nil {
			return nil, err
		}
		passwordHash = &hash
	}

	if err := e.users.UpdateProfile(ctx, userID, name, passwordHash, e.now()); err != nil {
		mapped := mapStoreError(err)
		e.emitAudit(ctx, auditEventProfileUpdate, userID, "", false, mapped)
		return nil, mapped
	}

	record, err := e.users.GetByID(ctx, userID)
	if err != nil {
		return nil, mapStoreError(err)
	}

	e.metricInc(MetricProfileUpdated)
	e.emitAudit(ctx, auditEventProfileUpdate, userID, record.Email, true, nil)

	return identityFromRecord(record), nil
}

// DeleteAccount removes the account and revokes the presented token so
// the deleted account's session dies with it.
func (e *Engine) DeleteAccount(ctx context.Context, userID, token string) error {
	if err := e.ready(); err != nil {
		return err
	}
	if userID == "" {
		return ErrMissingFields
	}

	record, err := e.users.GetByID(ctx, userID)
	if err != nil {
		return mapStoreError(err)
	}

	if err := e.users.Delete(ctx, userID); err != nil {
		mapped := mapStoreError(err)
		e.emitAudit(ctx, auditEventAccountDelete, userID, record.Email, false, mapped)
		return mapped
	}

	if token != "" {
		if expiresAt, expErr := jwt.ExpiryUnverified(token); expErr == nil {
			if denyErr := e.denylist.Add(ctx, token, expiresAt); denyErr != nil && !errors.Is(denyErr, context.Canceled) {
				// The account is gone either way; the orphaned token dies
				// at its natural expiry.
				e.emitAudit(ctx, auditEventAccountDelete, userID, record.Email, true, denyErr)
			}
		}
	}

	e.metricInc(MetricAccountDeleted)
	e.emitAudit(ctx, auditEventAccountDelete, userID, record.Email, true, nil)

	return nil
}
