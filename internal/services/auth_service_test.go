package services

import (
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func testSigner(username string, ttl time.Duration) (string, error) {
	return "token-for-" + username, nil
}

func TestLoginSuccess(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hemmeligt"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	svc := NewAuthService("admin", string(hash), testSigner)
	token, err := svc.Login("admin", "hemmeligt")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if token != "token-for-admin" {
		t.Fatalf("unexpected token %q", token)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("hemmeligt"), bcrypt.MinCost)
	svc := NewAuthService("admin", string(hash), testSigner)
	_, err := svc.Login("admin", "forkert")
	expectCode(t, err, ErrorUnauthorized)
}

func TestLoginWrongUsername(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("hemmeligt"), bcrypt.MinCost)
	svc := NewAuthService("admin", string(hash), testSigner)
	_, err := svc.Login("nogen", "hemmeligt")
	expectCode(t, err, ErrorUnauthorized)
}

func TestLoginMissingFields(t *testing.T) {
	svc := NewAuthService("admin", DefaultAdminHash, testSigner)
	_, err := svc.Login("", "")
	expectCode(t, err, ErrorInvalid)
}
