package auth

import (
	"errors"
	"testing"
	"time"
)

func TestIssueAndVerify(t *testing.T) {
	tokens := NewTokens("secret", "weave", time.Hour)

	raw, err := tokens.Issue("alice")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	owner, err := tokens.Verify(raw)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if owner != "alice" {
		t.Fatalf("expected owner alice, got %q", owner)
	}
}

func TestVerifyRejects(t *testing.T) {
	tokens := NewTokens("secret", "weave", time.Hour)
	good, err := tokens.Issue("alice")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	otherSecret, _ := NewTokens("other", "weave", time.Hour).Issue("alice")
	otherIssuer, _ := NewTokens("secret", "someone-else", time.Hour).Issue("alice")

	expiredIssuer := NewTokens("secret", "weave", time.Minute)
	expiredIssuer.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expired, _ := expiredIssuer.Issue("alice")

	cases := map[string]string{
		"garbage":      "not-a-token",
		"wrong secret": otherSecret,
		"wrong issuer": otherIssuer,
		"expired":      expired,
		"tampered":     good + "x",
	}
	for name, raw := range cases {
		if _, err := tokens.Verify(raw); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}

	if _, err := tokens.Verify(""); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("empty token: expected ErrMissingToken, got %v", err)
	}
}

func TestIssueRequiresOwner(t *testing.T) {
	if _, err := NewTokens("secret", "", 0).Issue("  "); err == nil {
		t.Fatal("expected error for empty owner")
	}
}

func TestFromHeader(t *testing.T) {
	cases := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer  abc ", "abc", true},
		{"Basic abc", "", false},
		{"Bearer", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := FromHeader(tc.header)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("FromHeader(%q) = %q, %v", tc.header, got, err)
		}
		if !tc.ok && !errors.Is(err, ErrMissingToken) {
			t.Fatalf("FromHeader(%q) expected ErrMissingToken, got %v", tc.header, err)
		}
	}
}
