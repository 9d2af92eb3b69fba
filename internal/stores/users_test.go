package stores

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestUserStore(t *testing.T) (*UserStore, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})

	return NewUserStore(rdb, "t"), rdb
}

func registerParams(email string) RegisterParams {
	local, _, _ := strings.Cut(email, "@")
	return RegisterParams{
		ID:           "user-" + local,
		Name:         "Asha",
		Email:        email,
		PasswordHash: "hash-1",
		OTP:          "123456",
		OTPExpiresAt: time.Now().Add(10 * time.Minute).Unix(),
	}
}

func TestRegisterAndGetByEmail(t *testing.T) {
	store, _ := newTestUserStore(t)
	ctx := context.Background()

	id, replaced, err := store.Register(ctx, registerParams("asha@example.com"), time.Now())
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if id != "user-asha" || replaced {
		t.Fatalf("unexpected register result: id=%q replaced=%v", id, replaced)
	}

	record, err := store.GetByEmail(ctx, "asha@example.com")
	if err != nil {
		t.Fatalf("get by email failed: %v", err)
	}
	if record.ID != "user-asha" || record.Name != "Asha" || record.PasswordHash != "hash-1" {
		t.Fatalf("unexpected record: %+v", record)
	}
	if record.Verified {
		t.Fatal("new registration must be unverified")
	}
	if record.OTP != "123456" {
		t.Fatalf("otp not persisted: %q", record.OTP)
	}
}

func TestRegisterVerifiedEmailConflicts(t *testing.T) {
	store, _ := newTestUserStore(t)
	ctx := context.Background()

	params := registerParams("asha@example.com")
	params.Verified = true
	params.OTP = ""
	if _, _, err := store.Register(ctx, params, time.Now()); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	second := registerParams("asha@example.com")
	second.ID = "user-2"
	second.ReplaceUnverified = true
	if _, _, err := store.Register(ctx, second, time.Now()); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestRegisterReplacesUnverifiedInPlace(t *testing.T) {
	store, _ := newTestUserStore(t)
	ctx := context.Background()

	if _, _, err := store.Register(ctx, registerParams("asha@example.com"), time.Now()); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	second := registerParams("asha@example.com")
	second.ID = "user-2"
	second.Name = "Asha Again"
	second.PasswordHash = "hash-2"
	second.OTP = "654321"
	second.ReplaceUnverified = true

	id, replaced, err := store.Register(ctx, second, time.Now())
	if err != nil {
		t.Fatalf("re-register failed: %v", err)
	}
	if !replaced {
		t.Fatal("expected in-place replacement")
	}
	if id != "user-asha" {
		t.Fatalf("replacement must keep the original id, got %q", id)
	}

	record, err := store.GetByEmail(ctx, "asha@example.com")
	if err != nil {
		t.Fatalf("get by email failed: %v", err)
	}
	if record.Name != "Asha Again" || record.PasswordHash != "hash-2" || record.OTP != "654321" {
		t.Fatalf("replacement did not overwrite fields: %+v", record)
	}
}

func TestRegisterUnverifiedConflictsWithoutReplaceFlag(t *testing.T) {
	store, _ := newTestUserStore(t)
	ctx := context.Background()

	if _, _, err := store.Register(ctx, registerParams("asha@example.com"), time.Now()); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	second := registerParams("asha@example.com")
	second.ID = "user-2"
	if _, _, err := store.Register(ctx, second, time.Now()); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestRegisterRejectsUserIDCollision(t *testing.T) {
	store, _ := newTestUserStore(t)
	ctx := context.Background()

	if _, _, err := store.Register(ctx, registerParams("asha@example.com"), time.Now()); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	// A different email reusing an existing id must fail loudly instead
	// of clobbering the first record.
	second := registerParams("other@example.com")
	second.ID = "user-asha"
	if _, _, err := store.Register(ctx, second, time.Now()); !errors.Is(err, ErrUserIDConflict) {
		t.Fatalf("expected ErrUserIDConflict, got %v", err)
	}

	record, err := store.GetByEmail(ctx, "asha@example.com")
	if err != nil {
		t.Fatalf("get by email failed: %v", err)
	}
	if record.Email != "asha@example.com" || record.PasswordHash != "hash-1" {
		t.Fatalf("original record damaged: %+v", record)
	}
}

func TestConsumeVerificationOTP(t *testing.T) {
	store, _ := newTestUserStore(t)
	ctx := context.Background()

	if _, _, err := store.Register(ctx, registerParams("asha@example.com"), time.Now()); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	record, err := store.ConsumeVerificationOTP(ctx, "asha@example.com", "123456", time.Now())
	if err != nil {
		t.Fatalf("consume failed: %v", err)
	}
	if !record.Verified {
		t.Fatal("consume must mark the record verified")
	}

	stored, err := store.GetByEmail(ctx, "asha@example.com")
	if err != nil {
		t.Fatalf("get by email failed: %v", err)
	}
	if stored.OTP != "" || stored.OTPExpiresAt != 0 {
		t.Fatalf("otp fields not cleared: otp=%q exp=%d", stored.OTP, stored.OTPExpiresAt)
	}
}

func TestConsumeVerificationOTPIsSingleUse(t *testing.T) {
	store, _ := newTestUserStore(t)
	ctx := context.Background()

	if _, _, err := store.Register(ctx, registerParams("asha@example.com"), time.Now()); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := store.ConsumeVerificationOTP(ctx, "asha@example.com", "123456", time.Now()); err != nil {
		t.Fatalf("first consume failed: %v", err)
	}
	if _, err := store.ConsumeVerificationOTP(ctx, "asha@example.com", "123456", time.Now()); !errors.Is(err, ErrOTPInvalid) {
		t.Fatalf("second consume must fail with ErrOTPInvalid, got %v", err)
	}
}

func TestConsumeVerificationOTPFailuresAreOpaque(t *testing.T) {
	store, _ := newTestUserStore(t)
	ctx := context.Background()

	expired := registerParams("late@example.com")
	expired.OTPExpiresAt = time.Now().Add(-time.Minute).Unix()
	if _, _, err := store.Register(ctx, expired, time.Now()); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if _, _, err := store.Register(ctx, registerParams("asha@example.com"), time.Now()); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	cases := []struct {
		name  string
		email string
		otp   string
	}{
		{"unknown email", "nobody@example.com", "123456"},
		{"wrong code", "asha@example.com", "999999"},
		{"expired code", "late@example.com", "123456"},
	}
	for _, tc := range cases {
		if _, err := store.ConsumeVerificationOTP(ctx, tc.email, tc.otp, time.Now()); !errors.Is(err, ErrOTPInvalid) {
			t.Fatalf("%s: expected ErrOTPInvalid, got %v", tc.name, err)
		}
	}
}

func TestSetAndConsumeResetOTP(t *testing.T) {
	store, _ := newTestUserStore(t)
	ctx := context.Background()
	now := time.Now()

	if _, _, err := store.Register(ctx, registerParams("asha@example.com"), now); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	id, err := store.SetResetOTP(ctx, "asha@example.com", "777777", now.Add(10*time.Minute).Unix(), now)
	if err != nil {
		t.Fatalf("set reset otp failed: %v", err)
	}
	if id != "user-asha" {
		t.Fatalf("unexpected id %q", id)
	}

	if _, err := store.ConsumeResetOTP(ctx, "asha@example.com", "777777", "new-hash", now); err != nil {
		t.Fatalf("consume reset failed: %v", err)
	}

	record, err := store.GetByEmail(ctx, "asha@example.com")
	if err != nil {
		t.Fatalf("get by email failed: %v", err)
	}
	if record.PasswordHash != "new-hash" {
		t.Fatalf("password hash not replaced: %q", record.PasswordHash)
	}
	if !record.Verified {
		t.Fatal("successful reset must mark the record verified")
	}
	if record.OTP != "" {
		t.Fatalf("otp not cleared: %q", record.OTP)
	}
}

func TestConsumeResetOTPDistinguishesFailures(t *testing.T) {
	store, _ := newTestUserStore(t)
	ctx := context.Background()
	now := time.Now()

	params := registerParams("asha@example.com")
	params.OTP = ""
	params.OTPExpiresAt = 0
	if _, _, err := store.Register(ctx, params, now); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if _, err := store.ConsumeResetOTP(ctx, "nobody@example.com", "111111", "h", now); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("unknown email: expected ErrUserNotFound, got %v", err)
	}
	if _, err := store.ConsumeResetOTP(ctx, "asha@example.com", "111111", "h", now); !errors.Is(err, ErrNoPendingOTP) {
		t.Fatalf("no pending: expected ErrNoPendingOTP, got %v", err)
	}

	if _, err := store.SetResetOTP(ctx, "asha@example.com", "222222", now.Add(10*time.Minute).Unix(), now); err != nil {
		t.Fatalf("set reset otp failed: %v", err)
	}
	if _, err := store.ConsumeResetOTP(ctx, "asha@example.com", "333333", "h", now); !errors.Is(err, ErrOTPMismatch) {
		t.Fatalf("mismatch: expected ErrOTPMismatch, got %v", err)
	}

	if _, err := store.SetResetOTP(ctx, "asha@example.com", "444444", now.Add(-time.Minute).Unix(), now); err != nil {
		t.Fatalf("set reset otp failed: %v", err)
	}
	if _, err := store.ConsumeResetOTP(ctx, "asha@example.com", "444444", "h", now); !errors.Is(err, ErrOTPExpired) {
		t.Fatalf("expired: expected ErrOTPExpired, got %v", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	store, _ := newTestUserStore(t)
	ctx := context.Background()

	if _, _, err := store.Register(ctx, registerParams("asha@example.com"), time.Now()); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	name := "Renamed"
	if err := store.UpdateProfile(ctx, "user-asha", &name, nil, time.Now()); err != nil {
		t.Fatalf("update name failed: %v", err)
	}

	hash := "rotated-hash"
	if err := store.UpdateProfile(ctx, "user-asha", nil, &hash, time.Now()); err != nil {
		t.Fatalf("update password failed: %v", err)
	}

	record, err := store.GetByID(ctx, "user-asha")
	if err != nil {
		t.Fatalf("get by id failed: %v", err)
	}
	if record.Name != "Renamed" || record.PasswordHash != "rotated-hash" {
		t.Fatalf("updates not applied: %+v", record)
	}

	if err := store.UpdateProfile(ctx, "ghost", &name, nil, time.Now()); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestDeleteRemovesRecordAndIndex(t *testing.T) {
	store, _ := newTestUserStore(t)
	ctx := context.Background()

	if _, _, err := store.Register(ctx, registerParams("asha@example.com"), time.Now()); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if err := store.Delete(ctx, "user-asha"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := store.GetByEmail(ctx, "asha@example.com"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("email index must be gone, got %v", err)
	}
	if _, err := store.GetByID(ctx, "user-asha"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("record must be gone, got %v", err)
	}
	if err := store.Delete(ctx, "user-asha"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("double delete must report ErrUserNotFound, got %v", err)
	}
}
