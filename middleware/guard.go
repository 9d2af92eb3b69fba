package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	authd "github.com/naviriti/authd"
)

type identityContextKey struct{}
type tokenContextKey struct{}

type tokenInfo struct {
	token  string
	source string
}

// IdentityFromContext returns the authenticated identity attached by
// Guard.
func IdentityFromContext(ctx context.Context) (*authd.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey{}).(*authd.Identity)
	return identity, ok
}

// TokenFromContext returns the raw token Guard validated and the source
// location it was extracted from.
func TokenFromContext(ctx context.Context) (token, source string, ok bool) {
	info, ok := ctx.Value(tokenContextKey{}).(tokenInfo)
	return info.token, info.source, ok
}

// Guard authenticates requests with the default transport precedence.
// Failures are 401 with the standard error envelope; the message names
// the failure stage (missing token, bad signature or expiry, bad
// payload, revoked, unknown subject) without carrying token or store
// internals.
func Guard(engine *authd.Engine) func(http.Handler) http.Handler {
	return GuardWith(engine, DefaultExtractors)
}

// GuardWith is Guard with an explicit extractor chain.
func GuardWith(engine *authd.Engine, extractors []Extractor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				writeUnauthorized(w, "unauthorized")
				return
			}

			token, source := Extract(r, extractors)
			if token == "" {
				writeUnauthorized(w, authd.ErrTokenMissing.Error())
				return
			}

			identity, err := engine.Validate(r.Context(), token)
			if err != nil {
				if errors.Is(err, authd.ErrStoreUnavailable) {
					writeEnvelope(w, http.StatusInternalServerError, "service unavailable")
					return
				}
				writeUnauthorized(w, unauthorizedMessage(err))
				return
			}

			ctx := context.WithValue(r.Context(), identityContextKey{}, identity)
			ctx = context.WithValue(ctx, tokenContextKey{}, tokenInfo{token: token, source: source})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// unauthorizedMessage maps a validation failure onto the stage it failed
// at. Anything unrecognized stays generic.
func unauthorizedMessage(err error) string {
	switch {
	case errors.Is(err, authd.ErrTokenMissing),
		errors.Is(err, authd.ErrTokenInvalid),
		errors.Is(err, authd.ErrTokenRevoked),
		errors.Is(err, authd.ErrTokenPayload),
		errors.Is(err, authd.ErrUserNotFound):
		return err.Error()
	default:
		return "unauthorized"
	}
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	writeEnvelope(w, http.StatusUnauthorized, message)
}

func writeEnvelope(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  "error",
		"message": message,
	})
}
