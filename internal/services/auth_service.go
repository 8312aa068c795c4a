package services

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// TokenSigner issues a signed admin token.
type TokenSigner func(username string, ttl time.Duration) (string, error)

// DefaultAdminHash is the bcrypt hash of the development fallback password
// "admin123". Deployments override it via SURVEY_ADMIN_HASH.
const DefaultAdminHash = "$2b$10$g7f2e1B93mHmVFgCocen6Oci33m0KpS4YfFJEKG/1qeiCnhTLSLG6"

// AuthService checks the single admin credential pair and issues tokens.
// Token verification is the middleware's concern.
type AuthService struct {
	username  string
	passHash  []byte
	signToken TokenSigner
	tokenTTL  time.Duration
}

func NewAuthService(username, passHash string, signer TokenSigner) *AuthService {
	return &AuthService{
		username:  username,
		passHash:  []byte(passHash),
		signToken: signer,
		tokenTTL:  time.Hour,
	}
}

// Login returns a signed token when the credentials match.
func (s *AuthService) Login(username, password string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", NewInvalidError("username/password required")
	}
	if username != s.username {
		return "", NewUnauthorizedError("Invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword(s.passHash, []byte(password)); err != nil {
		return "", NewUnauthorizedError("Invalid credentials")
	}
	if s.signToken == nil {
		return "", NewInvalidError("token signer not configured")
	}
	return s.signToken(username, s.tokenTTL)
}

func (s *AuthService) TokenTTL() time.Duration {
	return s.tokenTTL
}
