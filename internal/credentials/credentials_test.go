package credentials

import (
	"strings"
	"testing"
	"time"

	"familyphotos/internal/models"
)

func TestGenerateInvitationToken(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		token, err := GenerateInvitationToken()
		if err != nil {
			t.Fatalf("GenerateInvitationToken() error = %v", err)
		}
		if len(token) != 32 {
			t.Errorf("token length = %d, want 32", len(token))
		}
		if seen[token] {
			t.Errorf("duplicate token generated: %s", token)
		}
		seen[token] = true
	}
}

func TestGenerateShareTokenIsURLSafe(t *testing.T) {
	token, err := GenerateShareToken()
	if err != nil {
		t.Fatalf("GenerateShareToken() error = %v", err)
	}
	if strings.ContainsAny(token, "+/=") {
		t.Errorf("share token %q is not URL safe", token)
	}
}

func TestMagicLinkRoundTrip(t *testing.T) {
	signer := NewMagicLinkSigner([]byte("test-key"))

	issued, err := signer.Issue("grandma@example.com", models.PurposeLogin, time.Hour)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	claims, err := signer.Verify(issued.Code)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if claims.Email != "grandma@example.com" {
		t.Errorf("Email = %q", claims.Email)
	}
	if claims.ID != issued.ID {
		t.Errorf("ID = %q, want %q", claims.ID, issued.ID)
	}
	if claims.Purpose != models.PurposeLogin {
		t.Errorf("Purpose = %q", claims.Purpose)
	}
}

func TestMagicLinkVerifyFailures(t *testing.T) {
	signer := NewMagicLinkSigner([]byte("test-key"))
	other := NewMagicLinkSigner([]byte("other-key"))

	valid, _ := signer.Issue("a@example.com", models.PurposeLogin, time.Hour)
	foreign, _ := other.Issue("a@example.com", models.PurposeLogin, time.Hour)

	expiredSigner := NewMagicLinkSigner([]byte("test-key"))
	expiredSigner.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, _ := expiredSigner.Issue("a@example.com", models.PurposeLogin, time.Hour)

	tests := []struct {
		name string
		code string
		want error
	}{
		{"empty", "", ErrInvalidCode},
		{"garbage", "not-a-jwt", ErrInvalidCode},
		{"wrong key", foreign.Code, ErrInvalidCode},
		{"tampered", valid.Code + "x", ErrInvalidCode},
		{"expired", expired.Code, ErrExpiredCode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := signer.Verify(tt.code); err != tt.want {
				t.Errorf("Verify() error = %v, want %v", err, tt.want)
			}
		})
	}
}
