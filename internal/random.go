package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"math/big"
	"strconv"
)

// otpSpan covers [100000, 999999]. Codes never carry a leading zero; the
// verification and reset flows depend on exact string equality, so the
// range must stay stable across versions.
var otpSpan = big.NewInt(900000)

// NewOTP returns a uniformly random six-digit numeric code.
func NewOTP() (string, error) {
	n, err := rand.Int(rand.Reader, otpSpan)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+100000, 10), nil
}

// DigestToken maps an opaque token string to a fixed-size hex digest.
// Denylist keys use the digest rather than the raw token so key length is
// bounded regardless of what clients present.
func DigestToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
