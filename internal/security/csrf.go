package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// CSRFHeader is the request header that must echo the CSRF token
const CSRFHeader = "X-CSRF-Token"

// CSRFGenerator generates and validates CSRF tokens using HMAC-SHA256.
// A token is derived from the caller's access token, so no server-side state is kept.
type CSRFGenerator struct {
	secret []byte
}

// NewCSRFGenerator creates a new stateless HMAC-based CSRF generator.
func NewCSRFGenerator(secret string) *CSRFGenerator {
	return &CSRFGenerator{secret: []byte(secret)}
}

// GenerateToken returns the CSRF token bound to accessToken.
func (g *CSRFGenerator) GenerateToken(accessToken string) (string, error) {
	if accessToken == "" {
		return "", errors.New("access token is required")
	}
	mac := hmac.New(sha256.New, g.secret)
	mac.Write([]byte(accessToken))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// ValidateToken reports whether token is the valid CSRF token for accessToken.
func (g *CSRFGenerator) ValidateToken(accessToken, token string) bool {
	if accessToken == "" || token == "" {
		return false
	}
	expected, err := g.GenerateToken(accessToken)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(token))
}
