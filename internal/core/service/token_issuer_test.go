package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestTokenIssuer_Issue(t *testing.T) {
	issuer := NewTokenIssuer("k", 2*time.Hour)
	issuer.now = func() time.Time { return fixedNow }

	signed, err := issuer.Issue("sid-9", "42")
	if err != nil {
		t.Fatal(err)
	}

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(signed, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("k"), nil
	}, jwt.WithTimeFunc(func() time.Time { return fixedNow }))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || !exp.Time.Equal(fixedNow.Add(2*time.Hour)) {
		t.Fatalf("exp = %v, %v", exp, err)
	}
	if claims["sid"] != "sid-9" || claims["user_id"] != "42" {
		t.Fatalf("unexpected claims %v", claims)
	}
}

func TestNewTokenIssuer_DefaultTTL(t *testing.T) {
	if got := NewTokenIssuer("k", 0).ttl; got != 24*time.Hour {
		t.Fatalf("ttl = %v", got)
	}
}
