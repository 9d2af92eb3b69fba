package authd

import (
	"context"
	"fmt"

	"github.com/naviriti/authd/internal"
	"github.com/naviriti/authd/mail"
)

// RequestPasswordReset attaches a fresh reset code to the account and
// mails it. An account holds at most one pending code; a repeat request
// overwrites the previous one. Unknown email returns ErrUserNotFound.
//
// As with Register, a persisted code whose mail failed reports
// ErrMailDelivery; the caller may retry the request to resend.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	if err := e.ready(); err != nil {
		return "", err
	}
	if email == "" {
		return "", ErrMissingFields
	}

	email = normalizeEmail(email)

	otp, err := internal.NewOTP()
	if err != nil {
		return "", err
	}

	now := e.now()
	id, err := e.users.SetResetOTP(ctx, email, otp, now.Add(e.config.OTP.TTL).Unix(), now)
	if err != nil {
		mapped := mapStoreError(err)
		e.emitAudit(ctx, auditEventResetRequest, "", email, false, mapped)
		return "", mapped
	}

	preview, mailErr := e.mailer.Send(ctx, e.resetMessage(email, otp))
	if mailErr != nil {
		e.metricInc(MetricMailFailure)
		e.emitAudit(ctx, auditEventResetRequest, id, email, false, ErrMailDelivery)
		return "", fmt.Errorf("%w: %v", ErrMailDelivery, mailErr)
	}

	e.metricInc(MetricResetRequest)
	e.emitAudit(ctx, auditEventResetRequest, id, email, true, nil)

	return preview, nil
}

// ResetPassword consumes the pending reset code and installs the new
// password in the same atomic store operation. Unlike email verification,
// failure causes are distinguished: no pending code, wrong code and
// expired code each return their own error. Success also marks the
// account verified, since completing the flow proves mailbox ownership.
func (e *Engine) ResetPassword(ctx context.Context, email, otp, newPassword string) error {
	if err := e.ready(); err != nil {
		return err
	}
	if email == "" || otp == "" || newPassword == "" {
		return ErrMissingFields
	}

	email = normalizeEmail(email)

	hash, err := e.hashPassword(newPassword)
	if err != nil {
		return err
	}

	id, err := e.users.ConsumeResetOTP(ctx, email, otp, hash, e.now())
	if err != nil {
		mapped := mapStoreError(err)
		e.metricInc(MetricResetFailure)
		e.emitAudit(ctx, auditEventResetConfirm, "", email, false, mapped)
		return mapped
	}

	e.metricInc(MetricResetSuccess)
	e.emitAudit(ctx, auditEventResetConfirm, id, email, true, nil)

	return nil
}

func (e *Engine) resetMessage(to, otp string) mail.Message {
	return mail.Message{
		To:      to,
		Subject: "Reset your password",
		Body: fmt.Sprintf(
			"Your password reset code is %s. It expires in %d minutes.\n\nIf you did not request a reset, ignore this message; your password is unchanged.\n",
			otp, int(e.config.OTP.TTL.Minutes()),
		),
	}
}
