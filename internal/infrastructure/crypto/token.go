package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// TokenGenerator provides cryptographically secure token generation.
type TokenGenerator struct{}

// NewTokenGenerator creates a new token generator.
func NewTokenGenerator() *TokenGenerator {
	return &TokenGenerator{}
}

// GenerateToken generates a cryptographically secure random token.
// Returns the token as a URL-safe base64 string.
func (g *TokenGenerator) GenerateToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

// GenerateAccessToken generates an opaque access token (256 bits).
func (g *TokenGenerator) GenerateAccessToken() (string, error) {
	return g.GenerateToken(32)
}

// GenerateRefreshToken generates a refresh token (256 bits).
func (g *TokenGenerator) GenerateRefreshToken() (string, error) {
	return g.GenerateToken(32)
}

// GenerateAuthorizationCode generates an authorization code (256 bits).
func (g *TokenGenerator) GenerateAuthorizationCode() (string, error) {
	return g.GenerateToken(32)
}

// HashToken creates a SHA-256 hash of a token for secure storage.
// Tokens and codes are stored as hashes so they cannot be leaked from the DB.
func (g *TokenGenerator) HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// PKCECodeChallenge computes a PKCE code challenge from a verifier.
// Uses S256 method: BASE64URL(SHA256(code_verifier))
func (g *TokenGenerator) PKCECodeChallenge(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}

// VerifyPKCE verifies a PKCE code verifier against a stored challenge.
// Supports both S256 and plain methods.
func (g *TokenGenerator) VerifyPKCE(verifier, challenge, method string) bool {
	switch method {
	case "S256":
		computed := g.PKCECodeChallenge(verifier)
		return subtle.ConstantTimeCompare([]byte(computed), []byte(challenge)) == 1
	case "plain":
		return subtle.ConstantTimeCompare([]byte(verifier), []byte(challenge)) == 1
	default:
		return false
	}
}
