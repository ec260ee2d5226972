package identity

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/mvoicu/dansport/internal/platform/errors"
)

// verifierEnv holds raw env values before post-parse validation.
type verifierEnv struct {
	Issuer    string `env:"DANSPORT_IDENTITY_ISSUER"`
	Audience  string `env:"DANSPORT_IDENTITY_AUDIENCE"`
	PublicKey string `env:"DANSPORT_IDENTITY_PUBLIC_KEY"`
}

// VerifierConfig defines how identity tokens are verified.
type VerifierConfig struct {
	Issuer   string
	Audience string
	Key      ed25519.PublicKey
	Now      func() time.Time
}

// tokenClaims is the internal claims type used for JWT parsing.
type tokenClaims struct {
	jwt.RegisteredClaims
	Role  string `json:"role"`
	Email string `json:"email"`
}

// LoadVerifierConfigFromEnv reads identity verification configuration.
func LoadVerifierConfigFromEnv(now func() time.Time) (VerifierConfig, error) {
	var raw verifierEnv
	if err := env.Parse(&raw); err != nil {
		return VerifierConfig{}, fmt.Errorf("parse identity env: %w", err)
	}
	issuer := strings.TrimSpace(raw.Issuer)
	audience := strings.TrimSpace(raw.Audience)
	publicKey := strings.TrimSpace(raw.PublicKey)
	if issuer == "" {
		return VerifierConfig{}, fmt.Errorf("DANSPORT_IDENTITY_ISSUER is required")
	}
	if audience == "" {
		return VerifierConfig{}, fmt.Errorf("DANSPORT_IDENTITY_AUDIENCE is required")
	}
	if publicKey == "" {
		return VerifierConfig{}, fmt.Errorf("DANSPORT_IDENTITY_PUBLIC_KEY is required")
	}
	keyBytes, err := decodeBase64(publicKey)
	if err != nil {
		return VerifierConfig{}, fmt.Errorf("decode identity public key: %w", err)
	}
	if len(keyBytes) != ed25519.PublicKeySize {
		return VerifierConfig{}, fmt.Errorf("identity public key must be %d bytes", ed25519.PublicKeySize)
	}
	if now == nil {
		now = time.Now
	}
	return VerifierConfig{
		Issuer:   issuer,
		Audience: audience,
		Key:      ed25519.PublicKey(keyBytes),
		Now:      now,
	}, nil
}

// VerifyToken verifies an identity token and returns the resolved actor.
func VerifyToken(token string, cfg VerifierConfig) (Actor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Actor{}, apperrors.E(apperrors.KindUnauthorized, "identity token is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Issuer == "" || cfg.Audience == "" || len(cfg.Key) != ed25519.PublicKeySize {
		return Actor{}, errors.New("identity verifier is not configured")
	}

	var parsed tokenClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(token *jwt.Token) (any, error) {
		return cfg.Key, nil
	},
		jwt.WithValidMethods([]string{"EdDSA"}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return Actor{}, apperrors.Wrap(apperrors.KindUnauthorized, "identity token is invalid", err)
	}

	if parsed.Issuer == "" || parsed.Issuer != cfg.Issuer {
		return Actor{}, apperrors.E(apperrors.KindUnauthorized, "identity token issuer mismatch")
	}
	if !audienceContains(parsed.Audience, cfg.Audience) {
		return Actor{}, apperrors.E(apperrors.KindUnauthorized, "identity token audience mismatch")
	}
	if strings.TrimSpace(parsed.Subject) == "" {
		return Actor{}, apperrors.E(apperrors.KindUnauthorized, "identity token subject is required")
	}
	if parsed.ExpiresAt == nil {
		return Actor{}, apperrors.E(apperrors.KindUnauthorized, "identity token exp is required")
	}

	now := cfg.Now().UTC()
	if !parsed.ExpiresAt.Time.UTC().After(now) {
		return Actor{}, apperrors.E(apperrors.KindUnauthorized, "identity token is expired")
	}
	if parsed.NotBefore != nil && now.Before(parsed.NotBefore.Time.UTC()) {
		return Actor{}, apperrors.E(apperrors.KindUnauthorized, "identity token not active yet")
	}

	return Actor{
		ID:      parsed.Subject,
		Role:    ParseRole(parsed.Role),
		RawRole: parsed.Role,
		Email:   strings.TrimSpace(parsed.Email),
	}, nil
}

func decodeBase64(value string) ([]byte, error) {
	if decoded, err := base64.StdEncoding.DecodeString(value); err == nil {
		return decoded, nil
	}
	return base64.RawStdEncoding.DecodeString(value)
}

func audienceContains(audience jwt.ClaimStrings, expected string) bool {
	for _, value := range audience {
		if value == expected {
			return true
		}
	}
	return false
}
