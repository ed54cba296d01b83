package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"google.golang.org/grpc/metadata"
)

func TestFromHTTPRequest(t *testing.T) {
	testCases := []struct {
		name          string
		cookie        string
		authorization string
		want          Credentials
	}{
		{name: "nothing"},
		{name: "cookie", cookie: "sess-1", want: Credentials{SessionID: "sess-1"}},
		{name: "bearer", authorization: "Bearer tok:secret", want: Credentials{BearerToken: "tok:secret"}},
		{name: "bearer lowercase", authorization: "bearer tok:secret", want: Credentials{BearerToken: "tok:secret"}},
		{name: "both", cookie: "sess-1", authorization: "Bearer tok:secret", want: Credentials{SessionID: "sess-1", BearerToken: "tok:secret"}},
		{name: "basic auth", authorization: "Basic dXNlcjpwYXNz", want: Credentials{MalformedAuthorization: true}},
		{name: "empty bearer", authorization: "Bearer ", want: Credentials{MalformedAuthorization: true}},
		{name: "short", authorization: "tok", want: Credentials{MalformedAuthorization: true}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
			if tc.cookie != "" {
				r.AddCookie(&http.Cookie{Name: "session", Value: tc.cookie})
			}
			if tc.authorization != "" {
				r.Header.Set("Authorization", tc.authorization)
			}
			got := FromHTTPRequest(r, "session")
			if got != tc.want {
				t.Errorf("FromHTTPRequest = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestFromHTTPRequest_OtherCookieIgnored(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: "theme", Value: "dark"})
	if got := FromHTTPRequest(r, "session"); got.SessionID != "" {
		t.Errorf("SessionID = %q, want empty", got.SessionID)
	}
}

func TestFromGRPCMetadata(t *testing.T) {
	md := metadata.Pairs(
		"authorization", "Bearer tok:secret",
		"cookie", "theme=dark; session=sess-1",
	)
	ctx := metadata.NewIncomingContext(context.Background(), md)
	got := FromGRPCMetadata(ctx, "session")
	want := Credentials{SessionID: "sess-1", BearerToken: "tok:secret"}
	if got != want {
		t.Errorf("FromGRPCMetadata = %+v, want %+v", got, want)
	}

	if got := FromGRPCMetadata(context.Background(), "session"); got != (Credentials{}) {
		t.Errorf("without metadata = %+v, want zero", got)
	}
}
