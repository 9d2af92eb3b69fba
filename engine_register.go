package authd

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/naviriti/authd/internal"
	"github.com/naviriti/authd/internal/stores"
	"github.com/naviriti/authd/mail"
)

// Register creates an account pending email verification and mails a
// six-digit code valid for the configured OTP TTL. Re-registering an
// email whose record is still unverified replaces that record in place
// and issues a fresh code; a verified email conflicts with ErrEmailTaken.
//
// When the record was persisted but the mail could not be delivered, the
// result carries the user id and the returned error wraps ErrMailDelivery.
func (e *Engine) Register(ctx context.Context, name, email, plainPassword string) (*RegisterResult, error) {
	return e.register(ctx, name, email, plainPassword, false)
}

// RegisterPreverified creates an account that can log in immediately,
// skipping email verification. The path is disabled unless
// Account.AllowPreverified is set; when disabled it fails the same way a
// missing route would, revealing nothing.
func (e *Engine) RegisterPreverified(ctx context.Context, name, email, plainPassword string) (*RegisterResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if !e.config.Account.AllowPreverified {
		return nil, ErrPreverifiedDisabled
	}
	return e.register(ctx, name, email, plainPassword, true)
}

func (e *Engine) register(ctx context.Context, name, email, plainPassword string, preverified bool) (*RegisterResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if email == "" || plainPassword == "" {
		return nil, ErrMissingFields
	}

	email = normalizeEmail(email)

	hash, err := e.hashPassword(plainPassword)
	if err != nil {
		return nil, err
	}

	now := e.now()
	params := stores.RegisterParams{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Verified:     preverified,
	}

	var otp string
	if !preverified {
		otp, err = internal.NewOTP()
		if err != nil {
			return nil, err
		}
		params.OTP = otp
		params.OTPExpiresAt = now.Add(e.config.OTP.TTL).Unix()
		params.ReplaceUnverified = true
	}

	id, replaced, err := e.users.Register(ctx, params, now)
	if err != nil {
		mapped := mapStoreError(err)
		if mapped == ErrEmailTaken {
			e.metricInc(MetricRegisterDuplicate)
		}
		e.emitAudit(ctx, auditEventRegister, "", email, false, mapped)
		return nil, mapped
	}

	result := &RegisterResult{
		UserID:   id,
		Replaced: replaced,
	}

	if !preverified {
		preview, mailErr := e.mailer.Send(ctx, e.verificationMessage(email, name, otp))
		if mailErr != nil {
			e.metricInc(MetricMailFailure)
			e.emitAudit(ctx, auditEventRegister, id, email, false, ErrMailDelivery)
			return result, fmt.Errorf("%w: %v", ErrMailDelivery, mailErr)
		}
		result.MailPreview = preview
	}

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditEventRegister, id, email, true, nil)

	return result, nil
}

// VerifyOTP consumes the pending verification code for email and marks
// the account verified. Matching and clearing the code is one atomic
// store operation, so a code verifies at most once even under concurrent
// attempts. Unknown email, wrong code and expired code are deliberately
// indistinguishable.
func (e *Engine) VerifyOTP(ctx context.Context, email, otp string) (*Identity, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if email == "" || otp == "" {
		return nil, ErrMissingFields
	}

	email = normalizeEmail(email)

	record, err := e.users.ConsumeVerificationOTP(ctx, email, otp, e.now())
	if err != nil {
		mapped := mapStoreError(err)
		e.metricInc(MetricVerifyFailure)
		e.emitAudit(ctx, auditEventVerifyEmail, "", email, false, mapped)
		return nil, mapped
	}

	e.metricInc(MetricVerifySuccess)
	e.emitAudit(ctx, auditEventVerifyEmail, record.ID, email, true, nil)

	return identityFromRecord(record), nil
}

func (e *Engine) verificationMessage(to, name, otp string) mail.Message {
	greeting := "Hi"
	if name != "" {
		greeting = "Hi " + name
	}
	return mail.Message{
		To:      to,
		Subject: "Verify your email address",
		Body: fmt.Sprintf(
			"%s,\n\nYour verification code is %s. It expires in %d minutes.\n\nIf you did not create this account, ignore this message.\n",
			greeting, otp, int(e.config.OTP.TTL.Minutes()),
		),
	}
}
