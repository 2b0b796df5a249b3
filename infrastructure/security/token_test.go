package security

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hilthontt/kindred/domain/model"
	"github.com/hilthontt/kindred/infrastructure/config"
)

var testJWT = config.JWTConfig{Secret: "test-secret-test-secret-test-secret", Issuer: "kindred"}

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.Claims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return raw
}

func validRegistered() jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    testJWT.Issuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
}

func TestVerifyIssuedToken(t *testing.T) {
	v := NewTokenVerifier(testJWT)

	raw, err := IssueToken(testJWT, model.Identity{ID: 5, Kind: model.KindOrganizer}, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	got, err := v.Verify(raw)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got.ID != 5 || got.Kind != model.KindOrganizer {
		t.Errorf("Verify = %+v, want organizer 5", got)
	}
}

func TestVerifyDefaultsRoleToUser(t *testing.T) {
	v := NewTokenVerifier(testJWT)
	raw := sign(t, jwt.SigningMethodHS256, []byte(testJWT.Secret), &Claims{ID: 12, RegisteredClaims: validRegistered()})

	got, err := v.Verify(raw)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got.Kind != model.KindUser {
		t.Errorf("kind = %q, want %q", got.Kind, model.KindUser)
	}
}

func TestVerifyFallsBackToNumericSubject(t *testing.T) {
	v := NewTokenVerifier(testJWT)
	rc := validRegistered()
	rc.Subject = "31"
	raw := sign(t, jwt.SigningMethodHS256, []byte(testJWT.Secret), &Claims{RegisteredClaims: rc})

	got, err := v.Verify(raw)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got.ID != 31 {
		t.Errorf("id = %d, want 31", got.ID)
	}
}

func TestVerifyRejections(t *testing.T) {
	v := NewTokenVerifier(testJWT)
	secret := []byte(testJWT.Secret)

	expired := validRegistered()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	noExpiry := validRegistered()
	noExpiry.ExpiresAt = nil

	wrongIssuer := validRegistered()
	wrongIssuer.Issuer = "someone-else"

	textSubject := validRegistered()
	textSubject.Subject = "alice"

	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"empty", "", ErrTokenRequired},
		{"garbage", "not-a-token", ErrInvalidToken},
		{"wrong secret", sign(t, jwt.SigningMethodHS256, []byte("other"), &Claims{ID: 1, RegisteredClaims: validRegistered()}), ErrInvalidToken},
		{"alg none", sign(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, &Claims{ID: 1, RegisteredClaims: validRegistered()}), ErrInvalidToken},
		{"alg HS512", sign(t, jwt.SigningMethodHS512, secret, &Claims{ID: 1, RegisteredClaims: validRegistered()}), ErrInvalidToken},
		{"expired", sign(t, jwt.SigningMethodHS256, secret, &Claims{ID: 1, RegisteredClaims: expired}), ErrInvalidToken},
		{"no expiry", sign(t, jwt.SigningMethodHS256, secret, &Claims{ID: 1, RegisteredClaims: noExpiry}), ErrInvalidToken},
		{"wrong issuer", sign(t, jwt.SigningMethodHS256, secret, &Claims{ID: 1, RegisteredClaims: wrongIssuer}), ErrInvalidToken},
		{"no subject", sign(t, jwt.SigningMethodHS256, secret, &Claims{RegisteredClaims: validRegistered()}), ErrInvalidToken},
		{"text subject", sign(t, jwt.SigningMethodHS256, secret, &Claims{RegisteredClaims: textSubject}), ErrInvalidToken},
		{"unknown role", sign(t, jwt.SigningMethodHS256, secret, &Claims{ID: 1, Role: "admin", RegisteredClaims: validRegistered()}), ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(tt.raw)
			if !errors.Is(err, tt.want) {
				t.Errorf("Verify error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestTokenFromRequest(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		header   string
		protocol string
		want     string
	}{
		{"authorization header", "/ws", "Bearer abc", "", "abc"},
		{"subprotocol pair", "/ws", "", "bearer, def", "def"},
		{"query fallback", "/ws?token=ghi", "", "", "ghi"},
		{"header wins over query", "/ws?token=ghi", "Bearer abc", "", "abc"},
		{"non bearer header ignored", "/ws?token=ghi", "Basic xyz", "", "ghi"},
		{"nothing", "/ws", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", tt.target, nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			if tt.protocol != "" {
				r.Header.Set("Sec-WebSocket-Protocol", tt.protocol)
			}
			if got := TokenFromRequest(r); got != tt.want {
				t.Errorf("TokenFromRequest = %q, want %q", got, tt.want)
			}
		})
	}
}
