package tokens

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type RefreshClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// SignRefresh returns the signed token and its jti.
func SignRefresh(subject, sessionID string, exp time.Time, secret []byte) (string, string, error) {
	jti := NewJTI()
	claims := RefreshClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        jti,
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", "", err
	}
	return signed, jti, nil
}

func RefreshClaimsFromToken(tokenStr string, refreshSecret []byte) (*RefreshClaims, error) {
	return parseRefresh(tokenStr, refreshSecret)
}

// RefreshSessionID returns the session id of a refresh token signed with
// refreshSecret, expired or not.
func RefreshSessionID(tokenStr string, refreshSecret []byte) (string, error) {
	claims, err := parseRefresh(tokenStr, refreshSecret, jwt.WithoutClaimsValidation())
	if err != nil {
		return "", err
	}
	return claims.SessionID, nil
}

func parseRefresh(tokenStr string, refreshSecret []byte, opts ...jwt.ParserOption) (*RefreshClaims, error) {
	var claims RefreshClaims
	tkn, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected sign method")
		}
		return refreshSecret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !tkn.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return &claims, nil
}

func NewJTI() string { return uuid.NewString() }
