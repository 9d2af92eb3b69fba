// Package jwt wraps golang-jwt with the session-token policy of this
// service: HS256 only, expiry required, issuer pinned when configured, and
// a deliberately unverified expiry decode for revocation bookkeeping.
package jwt
