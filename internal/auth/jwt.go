package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session is what the signed session cookie carries. UserID is zero for
// anonymous sessions.
type Session struct {
	ID       string
	UserID   int64
	Username string
}

func (s Session) Authenticated() bool {
	return s.UserID != 0
}

type sessionClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
	UserID    int64  `json:"uid,omitempty"`
	Username  string `json:"usr,omitempty"`
}

func GenerateSessionToken(s Session, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		SessionID: s.ID,
		UserID:    s.UserID,
		Username:  s.Username,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func ParseSessionToken(tokenString string, secret []byte) (Session, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return Session{}, err
	}
	if !token.Valid || claims.SessionID == "" {
		return Session{}, fmt.Errorf("invalid token")
	}

	return Session{ID: claims.SessionID, UserID: claims.UserID, Username: claims.Username}, nil
}
