package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var ErrInvalidToken = errors.New("invalid token")

type TokenService struct {
	Secret     []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type Claims struct {
	UserID       string `json:"user_id"`
	Username     string `json:"username"`
	Role         string `json:"role"`
	TokenVersion int    `json:"token_version"`
	Type         string `json:"typ"`
	jwt.RegisteredClaims
}

func (c *Claims) IsAdmin() bool { return c != nil && c.Role == RoleAdmin }

func (ts TokenService) Sign(u *User) (string, time.Time, error) {
	return ts.sign(u, TokenTypeAccess, ts.AccessTTL)
}

func (ts TokenService) SignRefresh(u *User) (string, time.Time, error) {
	return ts.sign(u, TokenTypeRefresh, ts.RefreshTTL)
}

func (ts TokenService) sign(u *User, typ string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(ttl)

	claims := Claims{
		UserID:       u.ID,
		Username:     u.Username,
		Role:         u.Role,
		TokenVersion: u.TokenVersion,
		Type:         typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.Issuer,
			Subject:   u.ID,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString(ts.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return s, exp, nil
}

// Parse validates an access token.
func (ts TokenService) Parse(tokenString string) (*Claims, error) {
	return ts.parse(tokenString, TokenTypeAccess)
}

func (ts TokenService) ParseRefresh(tokenString string) (*Claims, error) {
	return ts.parse(tokenString, TokenTypeRefresh)
}

func (ts TokenService) parse(tokenString, typ string) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		// enforce HS256
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return ts.Secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Type != typ {
		return nil, fmt.Errorf("%w: expected %s token", ErrInvalidToken, typ)
	}
	return claims, nil
}
