package http

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/example/room-booking/internal/application"
)

func TestTokenVerifier(t *testing.T) {
	t.Parallel()

	verifier, err := NewTokenVerifier([]byte("secret"))
	if err != nil {
		t.Fatalf("expected verifier, got %v", err)
	}

	t.Run("round trips administrator claims", func(t *testing.T) {
		t.Parallel()

		token, err := verifier.Issue(application.Principal{UserID: "admin-1", DisplayName: "Admin", IsAdmin: true}, time.Hour)
		if err != nil {
			t.Fatalf("expected token, got %v", err)
		}
		principal, err := verifier.Verify(token)
		if err != nil {
			t.Fatalf("expected valid token, got %v", err)
		}
		if principal.UserID != "admin-1" || principal.DisplayName != "Admin" || !principal.IsAdmin {
			t.Fatalf("unexpected principal %+v", principal)
		}
	})

	t.Run("non admin role", func(t *testing.T) {
		t.Parallel()

		token, err := verifier.Issue(application.Principal{UserID: "teacher-1"}, time.Hour)
		if err != nil {
			t.Fatalf("expected token, got %v", err)
		}
		principal, err := verifier.Verify(token)
		if err != nil {
			t.Fatalf("expected valid token, got %v", err)
		}
		if principal.IsAdmin {
			t.Fatalf("expected non-admin principal")
		}
	})

	t.Run("rejects foreign signature", func(t *testing.T) {
		t.Parallel()

		other, _ := NewTokenVerifier([]byte("other"))
		token, err := other.Issue(application.Principal{UserID: "teacher-1"}, time.Hour)
		if err != nil {
			t.Fatalf("expected token, got %v", err)
		}
		if _, err := verifier.Verify(token); err == nil {
			t.Fatalf("expected signature error")
		}
	})

	t.Run("rejects expired token", func(t *testing.T) {
		t.Parallel()

		token, err := verifier.Issue(application.Principal{UserID: "teacher-1"}, -time.Hour)
		if err != nil {
			t.Fatalf("expected token, got %v", err)
		}
		if _, err := verifier.Verify(token); err == nil {
			t.Fatalf("expected expiry error")
		}
	})

	t.Run("rejects unsigned token", func(t *testing.T) {
		t.Parallel()

		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "teacher-1"}).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		if err != nil {
			t.Fatalf("expected token, got %v", err)
		}
		if _, err := verifier.Verify(token); err == nil {
			t.Fatalf("expected unsigned token to be rejected")
		}
	})

	t.Run("rejects missing subject", func(t *testing.T) {
		t.Parallel()

		token, err := verifier.Issue(application.Principal{}, time.Hour)
		if err != nil {
			t.Fatalf("expected token, got %v", err)
		}
		if _, err := verifier.Verify(token); err == nil {
			t.Fatalf("expected missing subject error")
		}
	})

	t.Run("requires secret", func(t *testing.T) {
		t.Parallel()

		if _, err := NewTokenVerifier(nil); err == nil {
			t.Fatalf("expected error for empty secret")
		}
	})
}
