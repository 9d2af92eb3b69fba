package authd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/naviriti/authd/internal/audit"
	"github.com/naviriti/authd/internal/stores"
	"github.com/naviriti/authd/jwt"
	"github.com/naviriti/authd/mail"
	"github.com/naviriti/authd/password"
)

// Engine implements the credential and session lifecycle: registration
// with email verification, login, token validation, revocation on logout,
// password reset, and account maintenance. Construct it through Builder;
// a zero Engine is not usable.
//
// All methods are safe for concurrent use.
type Engine struct {
	config Config

	users    *stores.UserStore
	denylist *stores.Denylist

	jwtManager   *jwt.Manager
	passwordHash *password.Bcrypt
	mailer       mail.Mailer
	audit        *audit.Dispatcher
	metrics      *Metrics

	// now is swapped in tests to pin time-dependent behavior.
	now func() time.Time
}

// Close drains the audit dispatcher. The engine must not be used after.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// Metrics returns a snapshot of the engine counters.
func (e *Engine) Metrics() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

// AuditDropped reports how many audit events were shed under backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) ready() error {
	if e == nil || e.users == nil || e.denylist == nil || e.jwtManager == nil {
		return ErrEngineNotReady
	}
	return nil
}

func (e *Engine) metricInc(id MetricID) {
	e.metrics.Inc(id)
}

// normalizeEmail lower-cases and trims the address. Every store lookup
// and index key goes through it, which is what makes email uniqueness
// case-insensitive.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// mapStoreError converts store sentinels into the engine's public error
// set. Anything unrecognized is a backend failure and is wrapped so the
// cause stays visible in logs without leaking to clients.
func mapStoreError(err error) error {
	switch {
	case errors.Is(err, stores.ErrUserNotFound):
		return ErrUserNotFound
	case errors.Is(err, stores.ErrEmailTaken):
		return ErrEmailTaken
	case errors.Is(err, stores.ErrOTPInvalid):
		return ErrInvalidOrExpiredOTP
	case errors.Is(err, stores.ErrNoPendingOTP):
		return ErrNoPendingOTP
	case errors.Is(err, stores.ErrOTPMismatch):
		return ErrOTPMismatch
	case errors.Is(err, stores.ErrOTPExpired):
		return ErrOTPExpired
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}

func (e *Engine) hashPassword(plain string) (string, error) {
	if plain == "" {
		return "", ErrMissingFields
	}
	hash, err := e.passwordHash.Hash(plain)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPasswordPolicy, err)
	}
	return hash, nil
}
