package security

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/baechuer/member-portal/internal/domain"
)

func TestJWTSigner_SignAndVerify_RoundTrip(t *testing.T) {
	t.Parallel()

	s := NewJWTSigner("secret", "member-portal")
	tok, err := s.SignSessionToken("u1", 24*time.Hour)
	if err != nil {
		t.Fatalf("sign err: %v", err)
	}

	claims, err := s.VerifySessionToken(tok)
	if err != nil {
		t.Fatalf("verify err: %v", err)
	}
	if claims.UserID != "u1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if d := time.Until(claims.Exp); d < 23*time.Hour || d > 25*time.Hour {
		t.Fatalf("expected ~24h expiry, got %v", d)
	}
}

func TestJWTSigner_Verify_Expired(t *testing.T) {
	t.Parallel()

	s := NewJWTSigner("secret", "member-portal")
	issued := time.Now().Add(-25 * time.Hour)
	s.now = func() time.Time { return issued }

	tok, err := s.SignSessionToken("u1", 24*time.Hour)
	if err != nil {
		t.Fatalf("sign err: %v", err)
	}

	s.now = time.Now
	_, err = s.VerifySessionToken(tok)
	if !domain.Is(err, "token_expired") {
		t.Fatalf("expected token_expired, got %v", err)
	}
}

func TestJWTSigner_Verify_Rejections(t *testing.T) {
	t.Parallel()

	good := NewJWTSigner("secret1", "member-portal")
	tok, err := good.SignSessionToken("u1", time.Minute)
	if err != nil {
		t.Fatalf("sign err: %v", err)
	}

	otherIssuer := NewJWTSigner("secret1", "someone-else")
	otherKey := NewJWTSigner("secret2", "member-portal")

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"uid": "u1",
		"iss": "member-portal",
		"exp": time.Now().Add(time.Minute).Unix(),
	})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("unexpected signing err: %v", err)
	}

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"uid": "u1",
		"iss": "member-portal",
	}).SignedString([]byte("secret1"))
	if err != nil {
		t.Fatalf("unexpected signing err: %v", err)
	}

	cases := []struct {
		name   string
		signer *JWTSigner
		token  string
	}{
		{"wrong key", otherKey, tok},
		{"wrong issuer", otherIssuer, tok},
		{"alg none", good, unsigned},
		{"missing exp", good, noExp},
		{"garbage", good, "not.a.jwt"},
		{"empty", good, ""},
	}

	for _, c := range cases {
		if _, err := c.signer.VerifySessionToken(c.token); !domain.Is(err, "token_invalid") {
			t.Fatalf("%s: expected token_invalid, got %v", c.name, err)
		}
	}
}

func TestJWTSigner_Sign_EmptySecret(t *testing.T) {
	t.Parallel()

	_, err := NewJWTSigner("", "member-portal").SignSessionToken("u1", time.Minute)
	if !domain.Is(err, "token_sign_failed") {
		t.Fatalf("expected token_sign_failed, got %v", err)
	}
}
