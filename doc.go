// Package authd implements a credential and session lifecycle engine:
// registration with mailed one-time verification codes, login issuing
// signed session tokens, validation with a revocation denylist, password
// reset, and account maintenance. All persistent state lives in Redis.
//
// The package is the public surface. It exposes [Engine], [Builder],
// [Config], and value types (Identity, LoginResult, MetricsSnapshot).
// Storage scripts, audit dispatch and randomness live under internal/ and
// are never exported; token transport extraction is in the middleware
// sub-package.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build]. Every check-then-act mutation
// (registration overwrite, code consumption) runs as a single Redis
// script, so concurrent attempts resolve in the store rather than racing
// in the process.
package authd
