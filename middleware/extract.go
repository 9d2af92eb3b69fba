package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

// maxBodyPeek bounds how much of a request body the body extractor will
// read while looking for a token field.
const maxBodyPeek = 1 << 20

// An Extractor pulls a session token out of one request location. Fn
// returns "" when the location carries no token. Source labels the
// location for audit and debugging.
type Extractor struct {
	Source string
	Fn     func(r *http.Request) string
}

// DefaultExtractors is the fixed transport precedence: Authorization
// header, then alternate headers, then query parameters, then JSON body,
// then cookies. The first non-empty hit wins and later locations are not
// consulted.
var DefaultExtractors = []Extractor{
	{Source: "authorization", Fn: FromAuthorizationHeader},
	{Source: "header", Fn: FromAltHeaders},
	{Source: "query", Fn: FromQuery},
	{Source: "body", Fn: FromJSONBody},
	{Source: "cookie", Fn: FromCookies},
}

var altHeaderNames = []string{
	"x-access-token",
	"x-token",
	"token",
	"x-auth-token",
	"auth-token",
}

var queryParamNames = []string{"token", "access_token", "jwt"}

var cookieNames = []string{"token", "jwt", "access_token"}

// Extract runs the extractors in order and returns the first token found
// together with the source label of the location that produced it.
func Extract(r *http.Request, extractors []Extractor) (token, source string) {
	for _, ex := range extractors {
		if t := ex.Fn(r); t != "" {
			return t, ex.Source
		}
	}
	return "", ""
}

// FromAuthorizationHeader accepts "Bearer <token>", a bare token, and,
// for malformed multi-part values, any segment shaped like a compact JWS
// (two dots).
func FromAuthorizationHeader(r *http.Request) string {
	value := strings.TrimSpace(r.Header.Get("Authorization"))
	if value == "" {
		return ""
	}

	parts := strings.Fields(value)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return parts[1]
	}
	if len(parts) == 1 {
		return parts[0]
	}
	for _, part := range parts {
		if strings.Count(part, ".") == 2 {
			return part
		}
	}
	return ""
}

// FromAltHeaders checks the alternate token headers in a fixed order.
func FromAltHeaders(r *http.Request) string {
	for _, name := range altHeaderNames {
		if v := strings.TrimSpace(r.Header.Get(name)); v != "" {
			return v
		}
	}
	return ""
}

// FromQuery checks the known query parameter names in a fixed order.
func FromQuery(r *http.Request) string {
	query := r.URL.Query()
	for _, name := range queryParamNames {
		if v := query.Get(name); v != "" {
			return v
		}
	}
	return ""
}

// FromJSONBody looks for a token field ("token", then "access_token",
// then "jwt") in a JSON request body. It only applies to POST and PUT,
// and it restores the body afterwards so downstream handlers can decode
// it again.
func FromJSONBody(r *http.Request) string {
	if r.Method != http.MethodPost && r.Method != http.MethodPut {
		return ""
	}
	if r.Body == nil {
		return ""
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyPeek))
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil || len(raw) == 0 {
		return ""
	}

	var payload struct {
		Token       string `json:"token"`
		AccessToken string `json:"access_token"`
		JWT         string `json:"jwt"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ""
	}
	for _, v := range []string{payload.Token, payload.AccessToken, payload.JWT} {
		if v != "" {
			return v
		}
	}
	return ""
}

// FromCookies checks the known cookie names in a fixed order.
func FromCookies(r *http.Request) string {
	for _, name := range cookieNames {
		if c, err := r.Cookie(name); err == nil && c.Value != "" {
			return c.Value
		}
	}
	return ""
}
