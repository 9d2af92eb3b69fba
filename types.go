package authd

import (
	"time"

	"github.com/naviriti/authd/internal/stores"
)

// Identity is the minimal account view exposed outside the engine. It
// never carries the password hash or any pending OTP state.
type Identity struct {
	ID        string
	Email     string
	Name      string
	Verified  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RegisterResult reports the outcome of a registration.
type RegisterResult struct {
	UserID string

	// Replaced is true when an unverified record for the same email was
	// overwritten in place.
	Replaced bool

	// MailPreview is the mailer's preview reference for the verification
	// message, when the transport exposes one.
	MailPreview string
}

// LoginResult carries a freshly issued session token.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	TTL       time.Duration
}

func identityFromRecord(record *stores.UserRecord) *Identity {
	return &Identity{
		ID:        record.ID,
		Email:     record.Email,
		Name:      record.Name,
		Verified:  record.Verified,
		CreatedAt: time.Unix(record.CreatedAt, 0).UTC(),
		UpdatedAt: time.Unix(record.UpdatedAt, 0).UTC(),
	}
}
