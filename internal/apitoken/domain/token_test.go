package domain

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name       string
		in         string
		wantID     string
		wantSecret string
		wantErr    bool
	}{
		{"valid", "tok1:s3cret", "tok1", "s3cret", false},
		{"secret with colons", "tok1:a:b:c", "tok1", "a:b:c", false},
		{"no colon", "tok1s3cret", "", "", true},
		{"empty id", ":s3cret", "", "", true},
		{"empty secret", "tok1:", "", "", true},
		{"only colon", ":", "", "", true},
		{"empty", "", "", "", true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			id, secret, err := Parse(tc.in)
			if tc.wantErr {
				if !errors.Is(err, ErrMalformed) {
					t.Fatalf("err = %v, want ErrMalformed", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if id != tc.wantID || secret != tc.wantSecret {
				t.Errorf("Parse = (%q, %q), want (%q, %q)", id, secret, tc.wantID, tc.wantSecret)
			}
		})
	}
}

func TestFormat_RoundTrip(t *testing.T) {
	id, secret, err := Parse(Format("abc", "def"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if id != "abc" || secret != "def" {
		t.Errorf("got (%q, %q)", id, secret)
	}
}

func TestToken_Validate(t *testing.T) {
	valid := Token{ID: "t1", UserID: "u1", OrgID: "o1", Name: "cli", TokenHash: "h"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	testCases := []struct {
		name   string
		mutate func(*Token)
	}{
		{"missing id", func(t *Token) { t.ID = "" }},
		{"colon in id", func(t *Token) { t.ID = "a:b" }},
		{"missing user", func(t *Token) { t.UserID = "" }},
		{"missing org", func(t *Token) { t.OrgID = "" }},
		{"missing hash", func(t *Token) { t.TokenHash = "" }},
		{"blank name", func(t *Token) { t.Name = "  " }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tok := valid
			tc.mutate(&tok)
			if err := tok.Validate(); err == nil {
				t.Error("Validate should fail")
			}
		})
	}
}
