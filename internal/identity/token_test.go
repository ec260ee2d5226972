package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/mvoicu/dansport/internal/platform/errors"
)

const (
	testIssuer   = "https://id.dansport.example"
	testAudience = "dansport-api"
)

func newTestKeys(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	return pub, priv
}

func signToken(t *testing.T, priv ed25519.PrivateKey, claims tokenClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	signed, err := token.SignedString(priv)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func validClaims(now time.Time) tokenClaims {
	return tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testIssuer,
			Audience:  jwt.ClaimStrings{testAudience},
			Subject:   "club-9",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Role:  "club",
		Email: "secretariat@clubul.example",
	}
}

func TestVerifyTokenResolvesActor(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	pub, priv := newTestKeys(t)
	cfg := VerifierConfig{Issuer: testIssuer, Audience: testAudience, Key: pub, Now: func() time.Time { return now }}

	actor, err := VerifyToken(signToken(t, priv, validClaims(now)), cfg)
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	if actor.ID != "club-9" {
		t.Fatalf("actor id = %q, want club-9", actor.ID)
	}
	if actor.Role != RoleClub {
		t.Fatalf("actor role = %v, want RoleClub", actor.Role)
	}
	if actor.Email != "secretariat@clubul.example" {
		t.Fatalf("actor email = %q", actor.Email)
	}
}

func TestVerifyTokenRejections(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	pub, priv := newTestKeys(t)
	cfg := VerifierConfig{Issuer: testIssuer, Audience: testAudience, Key: pub, Now: func() time.Time { return now }}

	cases := []struct {
		name   string
		mutate func(*tokenClaims)
	}{
		{"issuer mismatch", func(c *tokenClaims) { c.Issuer = "https://other.example" }},
		{"audience mismatch", func(c *tokenClaims) { c.Audience = jwt.ClaimStrings{"other-api"} }},
		{"missing subject", func(c *tokenClaims) { c.Subject = "" }},
		{"missing exp", func(c *tokenClaims) { c.ExpiresAt = nil }},
		{"expired", func(c *tokenClaims) { c.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Minute)) }},
		{"not yet valid", func(c *tokenClaims) { c.NotBefore = jwt.NewNumericDate(now.Add(time.Hour)) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			claims := validClaims(now)
			tc.mutate(&claims)
			_, err := VerifyToken(signToken(t, priv, claims), cfg)
			if !apperrors.IsKind(err, apperrors.KindUnauthorized) {
				t.Fatalf("expected unauthorized, got %v", err)
			}
		})
	}
}

func TestVerifyTokenRejectsForeignSignature(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	pub, _ := newTestKeys(t)
	_, otherPriv := newTestKeys(t)
	cfg := VerifierConfig{Issuer: testIssuer, Audience: testAudience, Key: pub, Now: func() time.Time { return now }}

	_, err := VerifyToken(signToken(t, otherPriv, validClaims(now)), cfg)
	if !apperrors.IsKind(err, apperrors.KindUnauthorized) {
		t.Fatalf("expected unauthorized for foreign signature, got %v", err)
	}
}

func TestLoadVerifierConfigFromEnv(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	t.Setenv("DANSPORT_IDENTITY_ISSUER", testIssuer)
	t.Setenv("DANSPORT_IDENTITY_AUDIENCE", testAudience)
	t.Setenv("DANSPORT_IDENTITY_PUBLIC_KEY", base64.StdEncoding.EncodeToString(pub))

	cfg, err := LoadVerifierConfigFromEnv(nil)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Issuer != testIssuer || cfg.Audience != testAudience {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if len(cfg.Key) != ed25519.PublicKeySize {
		t.Fatalf("key size = %d", len(cfg.Key))
	}

	t.Setenv("DANSPORT_IDENTITY_PUBLIC_KEY", "")
	if _, err := LoadVerifierConfigFromEnv(nil); err == nil {
		t.Fatal("expected error when public key missing")
	}
}
