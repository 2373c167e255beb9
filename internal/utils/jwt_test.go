package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestNewAccessTokenClaims(t *testing.T) {
	tok, err := NewAccessToken("s3cret", "gateway", "PAYMENT", 5)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}
	if until := time.Until(tok.Exp); until <= 4*time.Minute || until > 5*time.Minute {
		t.Fatalf("Exp in %v, want about 5m", until)
	}

	parsed, err := jwt.Parse(tok.Token, func(*jwt.Token) (interface{}, error) { return []byte("s3cret"), nil })
	if err != nil || !parsed.Valid {
		t.Fatalf("Parse: %v", err)
	}
	claims := parsed.Claims.(jwt.MapClaims)
	if claims["sub"] != "gateway" || claims["role"] != "PAYMENT" {
		t.Fatalf("claims = %v", claims)
	}
}

func TestNewAccessTokenWrongSecret(t *testing.T) {
	tok, err := NewAccessToken("right", "ops", "OPERATOR", 1)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}
	if _, err := jwt.Parse(tok.Token, func(*jwt.Token) (interface{}, error) { return []byte("wrong"), nil }); err == nil {
		t.Fatal("token verified with the wrong secret")
	}
}
