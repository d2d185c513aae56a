package auth

import (
	"testing"
	"time"

	"github.com/good-yellow-bee/fleetwatch/internal/models"
)

func testUser() *models.User {
	return &models.User{
		ID:    "user-1",
		Name:  "Alex",
		Email: "alex@example.com",
		Role:  models.RoleSupervisor,
	}
}

// TestJWTService_RoundTrip tests token generation and validation.
func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService([]byte("test-secret-key-for-testing"), 15*time.Minute)

	token, err := svc.GenerateToken(testUser())
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if token == "" {
		t.Fatal("GenerateToken returned empty token")
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Errorf("user id = %s, want user-1", claims.UserID)
	}
	if claims.Name != "Alex" {
		t.Errorf("name = %s, want Alex", claims.Name)
	}
	if claims.Role != models.RoleSupervisor {
		t.Errorf("role = %s, want supervisor", claims.Role)
	}
	if claims.Issuer != "fleetwatch" {
		t.Errorf("issuer = %s, want fleetwatch", claims.Issuer)
	}
}

// TestJWTService_Rejections tests validation failures.
func TestJWTService_Rejections(t *testing.T) {
	svc := NewJWTService([]byte("test-secret-key-for-testing"), 15*time.Minute)

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTService([]byte("a-different-secret-entirely"), 15*time.Minute)
		token, err := other.GenerateToken(testUser())
		if err != nil {
			t.Fatalf("GenerateToken failed: %v", err)
		}
		if _, err := svc.ValidateToken(token); err == nil {
			t.Error("expected error for token signed with a different secret")
		}
	})

	t.Run("expired token", func(t *testing.T) {
		expired := NewJWTService([]byte("test-secret-key-for-testing"), -time.Minute)
		token, err := expired.GenerateToken(testUser())
		if err != nil {
			t.Fatalf("GenerateToken failed: %v", err)
		}
		if _, err := svc.ValidateToken(token); err == nil {
			t.Error("expected error for expired token")
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		if _, err := svc.ValidateToken("not.a.jwt"); err == nil {
			t.Error("expected error for malformed token")
		}
	})

	t.Run("empty token", func(t *testing.T) {
		if _, err := svc.ValidateToken(""); err == nil {
			t.Error("expected error for empty token")
		}
	})
}

// TestJWTService_TTLSeconds tests the expiry reported to clients.
func TestJWTService_TTLSeconds(t *testing.T) {
	svc := NewJWTService([]byte("test-secret-key-for-testing"), 15*time.Minute)
	if got := svc.TTLSeconds(); got != 900 {
		t.Errorf("TTLSeconds = %d, want 900", got)
	}
}
