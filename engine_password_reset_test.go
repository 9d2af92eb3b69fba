package authd

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPasswordResetFlow(t *testing.T) {
	engine, outbox := newTestEngine(t, nil)
	ctx := context.Background()

	registerVerified(t, engine, outbox, "asha@example.com", "old-password")

	preview, err := engine.RequestPasswordReset(ctx, "asha@example.com")
	if err != nil {
		t.Fatalf("reset request failed: %v", err)
	}
	if preview == "" {
		t.Fatal("outbox mailer must return a preview reference")
	}

	otp := lastOTP(t, outbox)
	if err := engine.ResetPassword(ctx, "asha@example.com", otp, "new-password"); err != nil {
		t.Fatalf("reset failed: %v", err)
	}

	if _, err := engine.Login(ctx, "asha@example.com", "old-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password must stop working, got %v", err)
	}
	if _, err := engine.Login(ctx, "asha@example.com", "new-password"); err != nil {
		t.Fatalf("new password must log in: %v", err)
	}
}

func TestPasswordResetUnknownEmail(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	ctx := context.Background()

	if _, err := engine.RequestPasswordReset(ctx, "nobody@example.com"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestPasswordResetDistinguishesFailures(t *testing.T) {
	engine, outbox := newTestEngine(t, nil)
	ctx := context.Background()

	registerVerified(t, engine, outbox, "asha@example.com", "pw-secret")

	if err := engine.ResetPassword(ctx, "asha@example.com", "111111", "new-pw"); !errors.Is(err, ErrNoPendingOTP) {
		t.Fatalf("expected ErrNoPendingOTP, got %v", err)
	}
	if err := engine.ResetPassword(ctx, "ghost@example.com", "111111", "new-pw"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	if _, err := engine.RequestPasswordReset(ctx, "asha@example.com"); err != nil {
		t.Fatalf("reset request failed: %v", err)
	}
	otp := lastOTP(t, outbox)

	wrong := "000000"
	if wrong == otp {
		wrong = "000001"
	}
	if err := engine.ResetPassword(ctx, "asha@example.com", wrong, "new-pw"); !errors.Is(err, ErrOTPMismatch) {
		t.Fatalf("expected ErrOTPMismatch, got %v", err)
	}

	start := time.Now()
	engine.now = func() time.Time { return start.Add(11 * time.Minute) }
	if err := engine.ResetPassword(ctx, "asha@example.com", otp, "new-pw"); !errors.Is(err, ErrOTPExpired) {
		t.Fatalf("expected ErrOTPExpired, got %v", err)
	}
}

func TestPasswordResetCodeIsSingleUse(t *testing.T) {
	engine, outbox := newTestEngine(t, nil)
	ctx := context.Background()

	registerVerified(t, engine, outbox, "asha@example.com", "pw-secret")

	if _, err := engine.RequestPasswordReset(ctx, "asha@example.com"); err != nil {
		t.Fatalf("reset request failed: %v", err)
	}
	otp := lastOTP(t, outbox)

	if err := engine.ResetPassword(ctx, "asha@example.com", otp, "pw-two"); err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	if err := engine.ResetPassword(ctx, "asha@example.com", otp, "pw-three"); !errors.Is(err, ErrNoPendingOTP) {
		t.Fatalf("replayed code must fail, got %v", err)
	}
}

func TestPasswordResetImpliesVerified(t *testing.T) {
	engine, outbox := newTestEngine(t, nil)
	ctx := context.Background()

	// Registered but never verified.
	if _, err := engine.Register(ctx, "Asha", "asha@example.com", "pw-one"); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := engine.Login(ctx, "asha@example.com", "pw-one"); !errors.Is(err, ErrEmailNotVerified) {
		t.Fatalf("expected ErrEmailNotVerified, got %v", err)
	}

	if _, err := engine.RequestPasswordReset(ctx, "asha@example.com"); err != nil {
		t.Fatalf("reset request failed: %v", err)
	}
	if err := engine.ResetPassword(ctx, "asha@example.com", lastOTP(t, outbox), "pw-two"); err != nil {
		t.Fatalf("reset failed: %v", err)
	}

	// Completing the reset proved mailbox ownership.
	if _, err := engine.Login(ctx, "asha@example.com", "pw-two"); err != nil {
		t.Fatalf("login after reset failed: %v", err)
	}
}

func TestPasswordResetOverwritesPendingCode(t *testing.T) {
	engine, outbox := newTestEngine(t, nil)
	ctx := context.Background()

	registerVerified(t, engine, outbox, "asha@example.com", "pw-secret")

	if _, err := engine.RequestPasswordReset(ctx, "asha@example.com"); err != nil {
		t.Fatalf("first request failed: %v", err)
	}
	first := lastOTP(t, outbox)

	if _, err := engine.RequestPasswordReset(ctx, "asha@example.com"); err != nil {
		t.Fatalf("second request failed: %v", err)
	}
	second := lastOTP(t, outbox)
	if first == second {
		t.Skip("codes collided; re-run would distinguish")
	}

	if err := engine.ResetPassword(ctx, "asha@example.com", first, "new-pw"); !errors.Is(err, ErrOTPMismatch) {
		t.Fatalf("superseded code must fail, got %v", err)
	}
	if err := engine.ResetPassword(ctx, "asha@example.com", second, "new-pw"); err != nil {
		t.Fatalf("latest code must work: %v", err)
	}
}
