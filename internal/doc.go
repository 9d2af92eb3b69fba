// Package internal contains helpers that are intentionally private to
// authd: secure OTP generation and token digesting.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher plus Sink implementations)
//   - stores: Redis credential store and token denylist
//   - config: viper configuration for the daemon
//   - httpapi: the daemon's HTTP surface
//
// Nothing here may be imported from outside the authd module.
package internal
