package jwt

import (
	"errors"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestManager(t *testing.T, ttl time.Duration) *Manager {
	t.Helper()

	m, err := NewManager(Config{Secret: testSecret, TTL: ttl})
	if err != nil {
		t.Fatalf("new manager failed: %v", err)
	}
	return m
}

func TestNewManagerRejectsBadConfig(t *testing.T) {
	if _, err := NewManager(Config{Secret: []byte("short"), TTL: time.Hour}); err == nil {
		t.Fatal("short secret must be rejected")
	}
	if _, err := NewManager(Config{Secret: testSecret}); err == nil {
		t.Fatal("zero TTL must be rejected")
	}
	if _, err := NewManager(Config{Secret: testSecret, TTL: time.Hour, Leeway: 10 * time.Minute}); err == nil {
		t.Fatal("oversized leeway must be rejected")
	}
}

func TestIssueAndParse(t *testing.T) {
	m := newTestManager(t, time.Hour)

	token, expiresAt, err := m.Issue("user-1", "asha@example.com")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if until := time.Until(expiresAt); until < 59*time.Minute || until > time.Hour {
		t.Fatalf("unexpected expiry: %v", expiresAt)
	}

	claims, err := m.Parse(token)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if claims.Subject != "user-1" || claims.Email != "asha@example.com" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	m := newTestManager(t, time.Hour)
	token, _, err := m.Issue("user-1", "")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	other, err := NewManager(Config{Secret: []byte("ffffffffffffffffffffffffffffffff"), TTL: time.Hour})
	if err != nil {
		t.Fatalf("new manager failed: %v", err)
	}
	if _, err := other.Parse(token); err == nil {
		t.Fatal("token signed with a different secret must not parse")
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	m := newTestManager(t, time.Nanosecond)
	token, _, err := m.Issue("user-1", "")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	time.Sleep(time.Millisecond)

	if _, err := m.Parse(token); err == nil {
		t.Fatal("expired token must not parse")
	}
}

func TestParseRejectsUnsignedAlgorithm(t *testing.T) {
	m := newTestManager(t, time.Hour)

	unsigned := jwtlib.NewWithClaims(jwtlib.SigningMethodNone, jwtlib.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwtlib.NewNumericDate(time.Now().Add(time.Hour)),
	})
	token, err := unsigned.SignedString(jwtlib.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	if _, err := m.Parse(token); err == nil {
		t.Fatal("alg=none token must not parse")
	}
}

func TestExpiryUnverified(t *testing.T) {
	m := newTestManager(t, time.Hour)
	token, expiresAt, err := m.Issue("user-1", "")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	got, err := ExpiryUnverified(token)
	if err != nil {
		t.Fatalf("expiry decode failed: %v", err)
	}
	if got.Unix() != expiresAt.Unix() {
		t.Fatalf("expiry mismatch: got %v want %v", got, expiresAt)
	}

	if _, err := ExpiryUnverified("not-a-token"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("garbage must fail with ErrTokenInvalid, got %v", err)
	}

	noExp := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.RegisteredClaims{Subject: "user-1"})
	bare, err := noExp.SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if _, err := ExpiryUnverified(bare); !errors.Is(err, ErrNoExpiry) {
		t.Fatalf("missing exp must fail with ErrNoExpiry, got %v", err)
	}
}
