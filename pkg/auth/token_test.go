package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/naijamall/naijamall-backend/pkg/config"
	"github.com/naijamall/naijamall-backend/pkg/enums"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "secret",
		Issuer:            "naijamall",
		ExpirationMinutes: 30,
		Leeway:            5 * time.Second,
	}
}

func mustVerifier(t *testing.T, cfg config.JWTConfig) *Verifier {
	t.Helper()
	v, err := NewVerifier(cfg)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	return v
}

func TestMintAndVerify(t *testing.T) {
	cfg := testJWTConfig()
	now := time.Now().UTC()
	userID := uuid.New()

	token, err := MintAccessToken(cfg, now, AccessTokenPayload{UserID: userID, Role: enums.RoleRider, Email: "rider@naijamall.ng"})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	claims, err := mustVerifier(t, cfg).Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != userID || claims.Role != enums.RoleRider || claims.Subject != userID.String() {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if claims.ID == "" {
		t.Fatalf("expected jti to be generated")
	}
	if diff := claims.ExpiresAt.Time.Sub(now.Add(30 * time.Minute)); diff > time.Second || diff < -time.Second {
		t.Fatalf("unexpected expiry %s", claims.ExpiresAt.Time)
	}
}

func TestNewVerifierNeedsSecretAndIssuer(t *testing.T) {
	if _, err := NewVerifier(config.JWTConfig{Issuer: "x"}); err == nil {
		t.Fatalf("expected missing secret to fail")
	}
	if _, err := NewVerifier(config.JWTConfig{Secret: "x"}); err == nil {
		t.Fatalf("expected missing issuer to fail")
	}
}

func TestMintRejectsInvalidRole(t *testing.T) {
	if _, err := MintAccessToken(testJWTConfig(), time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: "vendor"}); err == nil {
		t.Fatalf("expected error for invalid role")
	}
}

func TestVerifyReportsExpiry(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now().Add(-2*time.Hour), AccessTokenPayload{UserID: uuid.New(), Role: enums.RoleBuyer})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := mustVerifier(t, cfg).Verify(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestVerifyAppliesLeeway(t *testing.T) {
	cfg := testJWTConfig()
	cfg.ExpirationMinutes = 1
	// Expired two seconds ago, inside the five second leeway.
	token, err := MintAccessToken(cfg, time.Now().Add(-62*time.Second), AccessTokenPayload{UserID: uuid.New(), Role: enums.RoleBuyer})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := mustVerifier(t, cfg).Verify(token); err != nil {
		t.Fatalf("expected token within leeway to pass, got %v", err)
	}
}

func TestVerifyRejectsForeignTokens(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.RoleAdmin})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	for name, mutate := range map[string]func(*config.JWTConfig){
		"issuer":   func(c *config.JWTConfig) { c.Issuer = "someone-else" },
		"secret":   func(c *config.JWTConfig) { c.Secret = "different" },
		"audience": func(c *config.JWTConfig) { c.Audience = "naijamall-api" },
	} {
		other := cfg
		mutate(&other)
		if _, err := mustVerifier(t, other).Verify(token); !errors.Is(err, ErrTokenInvalid) {
			t.Fatalf("%s: expected ErrTokenInvalid, got %v", name, err)
		}
	}
}

func TestVerifyRejectsUnknownRoleAndMissingExpiry(t *testing.T) {
	cfg := testJWTConfig()
	sign := func(claims AccessTokenClaims) string {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return token
	}
	verifier := mustVerifier(t, cfg)

	unknownRole := sign(AccessTokenClaims{
		UserID:           uuid.New(),
		Role:             "owner",
		RegisteredClaims: jwt.RegisteredClaims{Issuer: cfg.Issuer, ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
	if _, err := verifier.Verify(unknownRole); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected unknown role to be rejected, got %v", err)
	}

	noExpiry := sign(AccessTokenClaims{
		UserID:           uuid.New(),
		Role:             enums.RoleBuyer,
		RegisteredClaims: jwt.RegisteredClaims{Issuer: cfg.Issuer},
	})
	if _, err := verifier.Verify(noExpiry); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected token without exp to be rejected, got %v", err)
	}
}
