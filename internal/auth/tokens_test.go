package auth

import (
	"testing"
	"time"
)

func newTestIssuer() *TokenIssuer {
	return NewTokenIssuer("test-secret", time.Hour, 24*time.Hour)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	issuer := newTestIssuer()

	token, err := issuer.IssueAccessToken(42)
	if err != nil {
		t.Fatalf("IssueAccessToken() error = %v", err)
	}

	userID, err := issuer.VerifyAccessToken(token)
	if err != nil {
		t.Fatalf("VerifyAccessToken() error = %v", err)
	}
	if userID != 42 {
		t.Errorf("VerifyAccessToken() userID = %d, want 42", userID)
	}
}

func TestVerifyAccessTokenRejectsGarbage(t *testing.T) {
	issuer := newTestIssuer()

	if _, err := issuer.VerifyAccessToken("not-a-token"); err == nil {
		t.Error("VerifyAccessToken() expected error for malformed token")
	}
}

func TestVerifyAccessTokenRejectsWrongSecret(t *testing.T) {
	other := NewTokenIssuer("other-secret", time.Hour, 24*time.Hour)
	token, err := other.IssueAccessToken(7)
	if err != nil {
		t.Fatalf("IssueAccessToken() error = %v", err)
	}

	if _, err := newTestIssuer().VerifyAccessToken(token); err == nil {
		t.Error("VerifyAccessToken() expected error for token signed with another secret")
	}
}

func TestVerifyAccessTokenRejectsExpired(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", -time.Minute, 24*time.Hour)
	token, err := issuer.IssueAccessToken(7)
	if err != nil {
		t.Fatalf("IssueAccessToken() error = %v", err)
	}

	if _, err := issuer.VerifyAccessToken(token); err == nil {
		t.Error("VerifyAccessToken() expected error for expired token")
	}
}

func TestVerificationTokenRoundTrip(t *testing.T) {
	issuer := newTestIssuer()

	token, err := issuer.IssueVerificationToken("mila@example.com")
	if err != nil {
		t.Fatalf("IssueVerificationToken() error = %v", err)
	}

	email, err := issuer.VerifyVerificationToken(token)
	if err != nil {
		t.Fatalf("VerifyVerificationToken() error = %v", err)
	}
	if email != "mila@example.com" {
		t.Errorf("VerifyVerificationToken() email = %q, want %q", email, "mila@example.com")
	}
}

func TestTokenTypesAreNotInterchangeable(t *testing.T) {
	issuer := newTestIssuer()

	access, err := issuer.IssueAccessToken(1)
	if err != nil {
		t.Fatalf("IssueAccessToken() error = %v", err)
	}
	verification, err := issuer.IssueVerificationToken("mila@example.com")
	if err != nil {
		t.Fatalf("IssueVerificationToken() error = %v", err)
	}

	if _, err := issuer.VerifyVerificationToken(access); err == nil {
		t.Error("VerifyVerificationToken() accepted an access token")
	}
	if _, err := issuer.VerifyAccessToken(verification); err == nil {
		t.Error("VerifyAccessToken() accepted a verification token")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == "s3cret-pass" {
		t.Fatal("HashPassword() returned the plaintext password")
	}

	if !CheckPassword(hash, "s3cret-pass") {
		t.Error("CheckPassword() = false for correct password")
	}
	if CheckPassword(hash, "wrong-pass") {
		t.Error("CheckPassword() = true for wrong password")
	}
}
