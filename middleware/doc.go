// Package middleware provides net/http integration for authd: token
// extraction across the supported transport locations and a Guard that
// authenticates requests and attaches the resulting identity to the
// request context.
package middleware
