package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func TestNewPasetoService_KeyLength(t *testing.T) {
	if _, err := NewPasetoService([]byte("short")); err == nil {
		t.Error("expected error for a short key")
	}
	if _, err := NewPasetoService(testKey); err != nil {
		t.Errorf("32-byte key rejected: %v", err)
	}
}

func TestCreateAndVerifyToken(t *testing.T) {
	svc, err := NewPasetoService(testKey)
	if err != nil {
		t.Fatalf("NewPasetoService returned error: %v", err)
	}

	userID := uuid.New()
	token, err := svc.CreateToken(userID, "bob@example.com", time.Minute)
	if err != nil {
		t.Fatalf("CreateToken returned error: %v", err)
	}

	claims, err := svc.VerifyToken(token)
	if err != nil {
		t.Fatalf("VerifyToken returned error: %v", err)
	}
	if claims.UserID != userID.String() {
		t.Errorf("claims.UserID = %q; want %q", claims.UserID, userID.String())
	}
	if claims.Email != "bob@example.com" {
		t.Errorf("claims.Email = %q; want %q", claims.Email, "bob@example.com")
	}
	if !claims.ExpiresAt.After(claims.IssuedAt) {
		t.Error("expiration must be after issuance")
	}
}

func TestVerifyToken_Expired(t *testing.T) {
	svc, err := NewPasetoService(testKey)
	if err != nil {
		t.Fatalf("NewPasetoService returned error: %v", err)
	}

	token, err := svc.CreateToken(uuid.New(), "bob@example.com", -time.Minute)
	if err != nil {
		t.Fatalf("CreateToken returned error: %v", err)
	}

	_, err = svc.VerifyToken(token)
	if !errors.Is(err, ErrExpiredToken) {
		t.Errorf("VerifyToken error = %v; want %v", err, ErrExpiredToken)
	}
}

func TestVerifyToken_WrongKey(t *testing.T) {
	issuer, err := NewPasetoService(testKey)
	if err != nil {
		t.Fatalf("NewPasetoService returned error: %v", err)
	}
	verifier, err := NewPasetoService([]byte("ffffffffffffffffffffffffffffffff"))
	if err != nil {
		t.Fatalf("NewPasetoService returned error: %v", err)
	}

	token, err := issuer.CreateToken(uuid.New(), "bob@example.com", time.Minute)
	if err != nil {
		t.Fatalf("CreateToken returned error: %v", err)
	}

	if _, err := verifier.VerifyToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("VerifyToken error = %v; want %v", err, ErrInvalidToken)
	}
}

func TestVerifyToken_Garbage(t *testing.T) {
	svc, err := NewPasetoService(testKey)
	if err != nil {
		t.Fatalf("NewPasetoService returned error: %v", err)
	}

	if _, err := svc.VerifyToken("v4.local.not-a-real-token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("VerifyToken error = %v; want %v", err, ErrInvalidToken)
	}
}
