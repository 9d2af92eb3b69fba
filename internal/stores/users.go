package stores

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrUserNotFound         = errors.New("user record not found")
	ErrEmailTaken           = errors.New("email already registered")
	ErrUserIDConflict       = errors.New("user id already in use")
	ErrOTPInvalid           = errors.New("otp invalid or expired")
	ErrNoPendingOTP         = errors.New("no pending otp")
	ErrOTPMismatch          = errors.New("otp mismatch")
	ErrOTPExpired           = errors.New("otp expired")
	ErrUserStoreUnavailable = errors.New("user store unavailable")
)

// registerLua atomically creates a credential record or, when the email
// index already points at an unverified record and overwrite is allowed,
// replaces its name/password/otp fields in place. A verified record always
// conflicts. Doing the existence check and the write in one script closes
// the check-then-act race between concurrent registrations.
//
// KEYS[1] = email index key
// ARGV[1] = user key prefix
// ARGV[2] = candidate user id
// ARGV[3] = name
// ARGV[4] = email (normalized)
// ARGV[5] = password hash
// ARGV[6] = otp ("" to skip otp fields)
// ARGV[7] = otp expiry (unix seconds)
// ARGV[8] = now (unix seconds)
// ARGV[9] = verified flag ("0"/"1")
// ARGV[10] = allow replacing an unverified record ("0"/"1")
//
// Returns {id, replaced} or error string "email_taken" / "id_conflict".
var registerLua = redis.NewScript(`
local id = redis.call('GET', KEYS[1])
if id then
  local userKey = ARGV[1] .. id
  local verified = redis.call('HGET', userKey, 'verified')
  if verified == '1' or ARGV[10] == '0' then
    return {err='email_taken'}
  end
  redis.call('HSET', userKey, 'name', ARGV[3], 'pass', ARGV[5], 'updated_at', ARGV[8])
  if ARGV[6] ~= '' then
    redis.call('HSET', userKey, 'otp', ARGV[6], 'otp_exp', ARGV[7])
  end
  return {id, '1'}
end
local userKey = ARGV[1] .. ARGV[2]
if redis.call('EXISTS', userKey) == 1 then
  return {err='id_conflict'}
end
redis.call('HSET', userKey,
  'id', ARGV[2],
  'name', ARGV[3],
  'email', ARGV[4],
  'pass', ARGV[5],
  'verified', ARGV[9],
  'created_at', ARGV[8],
  'updated_at', ARGV[8])
if ARGV[6] ~= '' then
  redis.call('HSET', userKey, 'otp', ARGV[6], 'otp_exp', ARGV[7])
end
redis.call('SET', KEYS[1], ARGV[2])
return {ARGV[2], '0'}
`)

// consumeVerifyLua performs the single atomic conditional update of the
// verification flow: match email + otp + unexpired, then set verified and
// clear both otp fields in the same operation. Every failure cause maps to
// the same "invalid" code so callers cannot distinguish wrong email, wrong
// code, and expired code.
//
// KEYS[1] = email index key
// ARGV[1] = user key prefix
// ARGV[2] = provided otp
// ARGV[3] = now (unix seconds)
var consumeVerifyLua = redis.NewScript(`
local id = redis.call('GET', KEYS[1])
if not id then
  return {err='invalid'}
end
local userKey = ARGV[1] .. id
local vals = redis.call('HMGET', userKey, 'otp', 'otp_exp')
local otp = vals[1]
if not otp or otp == '' then
  return {err='invalid'}
end
if otp ~= ARGV[2] then
  return {err='invalid'}
end
local exp = tonumber(vals[2])
if not exp or exp <= tonumber(ARGV[3]) then
  return {err='invalid'}
end
redis.call('HSET', userKey, 'verified', '1', 'updated_at', ARGV[3])
redis.call('HDEL', userKey, 'otp', 'otp_exp')
return redis.call('HMGET', userKey, 'id', 'email', 'name', 'verified', 'created_at', 'updated_at')
`)

// setResetOTPLua attaches a fresh otp/expiry pair to an existing record.
// Only one pending otp exists per account; a new reset request overwrites
// whatever code was outstanding.
//
// KEYS[1] = email index key
// ARGV[1] = user key prefix
// ARGV[2] = otp
// ARGV[3] = otp expiry (unix seconds)
// ARGV[4] = now (unix seconds)
var setResetOTPLua = redis.NewScript(`
local id = redis.call('GET', KEYS[1])
if not id then
  return {err='not_found'}
end
local userKey = ARGV[1] .. id
if redis.call('EXISTS', userKey) == 0 then
  return {err='not_found'}
end
redis.call('HSET', userKey, 'otp', ARGV[2], 'otp_exp', ARGV[3], 'updated_at', ARGV[4])
return id
`)

// consumeResetLua rehashes the password and clears the otp pair in one
// operation. Unlike verification, the reset flow reports distinct causes.
// A successful reset also marks the account verified: completing it proves
// mailbox ownership.
//
// KEYS[1] = email index key
// ARGV[1] = user key prefix
// ARGV[2] = provided otp
// ARGV[3] = new password hash
// ARGV[4] = now (unix seconds)
var consumeResetLua = redis.NewScript(`
local id = redis.call('GET', KEYS[1])
if not id then
  return {err='not_found'}
end
local userKey = ARGV[1] .. id
local vals = redis.call('HMGET', userKey, 'otp', 'otp_exp')
local otp = vals[1]
if not otp or otp == '' then
  return {err='no_pending'}
end
if otp ~= ARGV[2] then
  return {err='mismatch'}
end
local exp = tonumber(vals[2])
if not exp or exp <= tonumber(ARGV[4]) then
  return {err='expired'}
end
redis.call('HSET', userKey, 'pass', ARGV[3], 'verified', '1', 'updated_at', ARGV[4])
redis.call('HDEL', userKey, 'otp', 'otp_exp')
return id
`)

// updateProfileLua mutates name and/or password hash on an existing record.
//
// KEYS[1] = user key
// ARGV[1] = now, ARGV[2] = set-name flag, ARGV[3] = name,
// ARGV[4] = set-pass flag, ARGV[5] = password hash
var updateProfileLua = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return {err='not_found'}
end
if ARGV[2] == '1' then
  redis.call('HSET', KEYS[1], 'name', ARGV[3])
end
if ARGV[4] == '1' then
  redis.call('HSET', KEYS[1], 'pass', ARGV[5])
end
redis.call('HSET', KEYS[1], 'updated_at', ARGV[1])
return 1
`)

// deleteUserLua removes the record and its email index entry together.
//
// KEYS[1] = user key
// ARGV[1] = email index key prefix
var deleteUserLua = redis.NewScript(`
local email = redis.call('HGET', KEYS[1], 'email')
if not email then
  return 0
end
redis.call('DEL', KEYS[1])
redis.call('DEL', ARGV[1] .. email)
return 1
`)

// UserRecord is the persisted credential record. PasswordHash, OTP and
// OTPExpiresAt never leave the store layer except through GetByEmail /
// GetByID, whose callers are responsible for not exposing them.
type UserRecord struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Verified     bool
	OTP          string
	OTPExpiresAt int64
	CreatedAt    int64
	UpdatedAt    int64
}

// RegisterParams carries the field set written by Register. Email must
// already be normalized (lower-cased) by the caller.
type RegisterParams struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	OTP          string
	OTPExpiresAt int64
	Verified     bool

	// ReplaceUnverified re-purposes an existing unverified record for the
	// same email instead of conflicting. The OTP registration flow sets it;
	// the preverified path never does.
	ReplaceUnverified bool
}

// UserStore persists credential records in Redis: one hash per user plus a
// lower-cased email index key pointing at the user id.
type UserStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewUserStore(redisClient redis.UniversalClient, prefix string) *UserStore {
	if prefix == "" {
		prefix = "authd"
	}
	return &UserStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *UserStore) userKeyPrefix() string {
	return s.prefix + ":user:"
}

func (s *UserStore) userKey(id string) string {
	return s.userKeyPrefix() + id
}

func (s *UserStore) emailKeyPrefix() string {
	return s.prefix + ":email:"
}

func (s *UserStore) emailKey(email string) string {
	return s.emailKeyPrefix() + email
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// Register creates the record, or replaces an unverified one in place when
// params.ReplaceUnverified is set. It returns the effective user id and
// whether an existing record was replaced.
func (s *UserStore) Register(ctx context.Context, params RegisterParams, now time.Time) (string, bool, error) {
	result, err := registerLua.Run(ctx, s.redis,
		[]string{s.emailKey(params.Email)},
		s.userKeyPrefix(),
		params.ID,
		params.Name,
		params.Email,
		params.PasswordHash,
		params.OTP,
		params.OTPExpiresAt,
		now.Unix(),
		boolFlag(params.Verified),
		boolFlag(params.ReplaceUnverified),
	).Result()
	if err != nil {
		switch err.Error() {
		case "email_taken":
			return "", false, ErrEmailTaken
		case "id_conflict":
			return "", false, ErrUserIDConflict
		default:
			return "", false, fmt.Errorf("%w: %v", ErrUserStoreUnavailable, err)
		}
	}

	parts, ok := result.([]interface{})
	if !ok || len(parts) != 2 {
		return "", false, fmt.Errorf("%w: unexpected lua result shape", ErrUserStoreUnavailable)
	}
	id, _ := parts[0].(string)
	replaced, _ := parts[1].(string)
	return id, replaced == "1", nil
}

// ConsumeVerificationOTP runs the atomic match-and-clear of the email
// verification flow. Wrong email, wrong code and expired code are all
// reported as ErrOTPInvalid.
func (s *UserStore) ConsumeVerificationOTP(ctx context.Context, email, otp string, now time.Time) (*UserRecord, error) {
	result, err := consumeVerifyLua.Run(ctx, s.redis,
		[]string{s.emailKey(email)},
		s.userKeyPrefix(),
		otp,
		now.Unix(),
	).Result()
	if err != nil {
		if err.Error() == "invalid" {
			return nil, ErrOTPInvalid
		}
		return nil, fmt.Errorf("%w: %v", ErrUserStoreUnavailable, err)
	}

	parts, ok := result.([]interface{})
	if !ok || len(parts) != 6 {
		return nil, fmt.Errorf("%w: unexpected lua result shape", ErrUserStoreUnavailable)
	}

	record := &UserRecord{}
	record.ID, _ = parts[0].(string)
	record.Email, _ = parts[1].(string)
	record.Name, _ = parts[2].(string)
	verified, _ := parts[3].(string)
	record.Verified = verified == "1"
	record.CreatedAt = parseUnix(parts[4])
	record.UpdatedAt = parseUnix(parts[5])
	return record, nil
}

// SetResetOTP stores a fresh reset code on the record addressed by email
// and returns the user id.
func (s *UserStore) SetResetOTP(ctx context.Context, email, otp string, expiresAt int64, now time.Time) (string, error) {
	result, err := setResetOTPLua.Run(ctx, s.redis,
		[]string{s.emailKey(email)},
		s.userKeyPrefix(),
		otp,
		expiresAt,
		now.Unix(),
	).Result()
	if err != nil {
		if err.Error() == "not_found" {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrUserStoreUnavailable, err)
	}
	id, _ := result.(string)
	return id, nil
}

// ConsumeResetOTP verifies the reset code and swaps in the new password
// hash atomically. Failure causes are distinguishable, matching the wire
// contract of the reset endpoint.
func (s *UserStore) ConsumeResetOTP(ctx context.Context, email, otp, newPasswordHash string, now time.Time) (string, error) {
	result, err := consumeResetLua.Run(ctx, s.redis,
		[]string{s.emailKey(email)},
		s.userKeyPrefix(),
		otp,
		newPasswordHash,
		now.Unix(),
	).Result()
	if err != nil {
		switch err.Error() {
		case "not_found":
			return "", ErrUserNotFound
		case "no_pending":
			return "", ErrNoPendingOTP
		case "mismatch":
			return "", ErrOTPMismatch
		case "expired":
			return "", ErrOTPExpired
		default:
			return "", fmt.Errorf("%w: %v", ErrUserStoreUnavailable, err)
		}
	}
	id, _ := result.(string)
	return id, nil
}

// GetByEmail resolves the email index and loads the full record.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*UserRecord, error) {
	id, err := s.redis.Get(ctx, s.emailKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUserStoreUnavailable, err)
	}
	return s.GetByID(ctx, id)
}

// GetByID loads the full record for a user id.
func (s *UserStore) GetByID(ctx context.Context, id string) (*UserRecord, error) {
	fields, err := s.redis.HGetAll(ctx, s.userKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUserStoreUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, ErrUserNotFound
	}
	return recordFromFields(fields), nil
}

// UpdateProfile mutates name and/or password hash. Nil pointers leave the
// corresponding field untouched.
func (s *UserStore) UpdateProfile(ctx context.Context, id string, name, passwordHash *string, now time.Time) error {
	nameVal, passVal := "", ""
	if name != nil {
		nameVal = *name
	}
	if passwordHash != nil {
		passVal = *passwordHash
	}

	_, err := updateProfileLua.Run(ctx, s.redis,
		[]string{s.userKey(id)},
		now.Unix(),
		boolFlag(name != nil),
		nameVal,
		boolFlag(passwordHash != nil),
		passVal,
	).Result()
	if err != nil {
		if err.Error() == "not_found" {
			return ErrUserNotFound
		}
		return fmt.Errorf("%w: %v", ErrUserStoreUnavailable, err)
	}
	return nil
}

// Delete removes the record and its email index entry together.
func (s *UserStore) Delete(ctx context.Context, id string) error {
	result, err := deleteUserLua.Run(ctx, s.redis,
		[]string{s.userKey(id)},
		s.emailKeyPrefix(),
	).Int()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUserStoreUnavailable, err)
	}
	if result == 0 {
		return ErrUserNotFound
	}
	return nil
}

func recordFromFields(fields map[string]string) *UserRecord {
	record := &UserRecord{
		ID:           fields["id"],
		Name:         fields["name"],
		Email:        fields["email"],
		PasswordHash: fields["pass"],
		Verified:     fields["verified"] == "1",
		OTP:          fields["otp"],
	}
	record.OTPExpiresAt, _ = strconv.ParseInt(fields["otp_exp"], 10, 64)
	record.CreatedAt, _ = strconv.ParseInt(fields["created_at"], 10, 64)
	record.UpdatedAt, _ = strconv.ParseInt(fields["updated_at"], 10, 64)
	return record
}

func parseUnix(v interface{}) int64 {
	s, _ := v.(string)
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}
