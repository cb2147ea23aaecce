package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenIssuer signs the session tokens handed to browser clients.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue returns an HS256 token carrying the session id and Discord user id.
func (i *TokenIssuer) Issue(sid, userID string) (string, error) {
	claims := jwt.MapClaims{
		"sid":     sid,
		"user_id": userID,
		"exp":     i.now().Add(i.ttl).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(i.secret)
}
