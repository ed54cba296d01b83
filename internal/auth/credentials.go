package auth

import (
	"context"
	"net/http"
	"strings"

	"google.golang.org/grpc/metadata"
)

const bearerPrefix = "bearer "

// Credentials are the raw credential signals found on one request.
type Credentials struct {
	// SessionID is the session cookie value; empty when no cookie was sent.
	SessionID string
	// BearerToken is the value after "Bearer "; empty when no usable Authorization header was sent.
	BearerToken string
	// MalformedAuthorization is set when an Authorization header was sent but is not a bearer
	// credential. It is treated as an invalid token.
	MalformedAuthorization bool
}

// HasToken reports whether the request carried any Authorization header.
func (c Credentials) HasToken() bool {
	return c.BearerToken != "" || c.MalformedAuthorization
}

// FromHTTPRequest reads the session cookie named cookieName and the Authorization header.
func FromHTTPRequest(r *http.Request, cookieName string) Credentials {
	var c Credentials
	if ck, err := r.Cookie(cookieName); err == nil {
		c.SessionID = ck.Value
	}
	c.BearerToken, c.MalformedAuthorization = parseAuthorization(r.Header.Get("Authorization"))
	return c
}

// FromGRPCMetadata reads the "authorization" and "cookie" keys of the incoming metadata.
func FromGRPCMetadata(ctx context.Context, cookieName string) Credentials {
	var c Credentials
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return c
	}
	if vals := md.Get("authorization"); len(vals) > 0 {
		c.BearerToken, c.MalformedAuthorization = parseAuthorization(vals[0])
	}
	if vals := md.Get("cookie"); len(vals) > 0 {
		h := http.Header{}
		for _, v := range vals {
			h.Add("Cookie", v)
		}
		r := http.Request{Header: h}
		if ck, err := r.Cookie(cookieName); err == nil {
			c.SessionID = ck.Value
		}
	}
	return c
}

// parseAuthorization returns the bearer token in v. malformed is true when v is non-empty but
// does not carry a bearer token.
func parseAuthorization(v string) (token string, malformed bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", false
	}
	if len(v) < len(bearerPrefix) || !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return "", true
	}
	token = strings.TrimSpace(v[len(bearerPrefix):])
	if token == "" {
		return "", true
	}
	return token, false
}
