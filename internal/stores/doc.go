// Package stores implements the Redis persistence layer: credential records
// with an email index, and the revoked-token denylist. Every mutation that
// would otherwise be check-then-act (registration overwrite, OTP consume,
// password reset) runs as a single Lua script so concurrent requests cannot
// interleave between the check and the write.
package stores
