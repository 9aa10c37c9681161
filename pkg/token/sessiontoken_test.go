package token

import (
	"testing"
	"time"
)

func TestIssueVerify_RoundTrip(t *testing.T) {
	secret := "test_secret"
	now := time.Unix(1700000000, 0)

	s, err := Issue(42, "12345", "admin", secret, time.Hour, now)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := Verify(s, secret, now.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != "42" {
		t.Fatalf("subject mismatch: %q", claims.Subject)
	}
	if claims.TelegramID != "12345" || claims.Role != "admin" {
		t.Fatalf("claims mismatch: %+v", claims)
	}
}

func TestVerify_Expired(t *testing.T) {
	secret := "test_secret"
	now := time.Unix(1700000000, 0)

	s, err := Issue(42, "12345", "user", secret, time.Hour, now)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := Verify(s, secret, now.Add(2*time.Hour)); err == nil {
		t.Fatalf("expected expiry error")
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	now := time.Unix(1700000000, 0)
	s, err := Issue(42, "12345", "user", "secret_a", time.Hour, now)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := Verify(s, "secret_b", now); err == nil {
		t.Fatalf("expected signature error")
	}
}

func TestIssue_RequiresSecret(t *testing.T) {
	if _, err := Issue(1, "1", "user", "", time.Hour, time.Now()); err == nil {
		t.Fatalf("expected error with empty secret")
	}
	if _, err := Verify("x.y.z", "", time.Now()); err == nil {
		t.Fatalf("expected error with empty secret")
	}
}
