package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims identify the caller on every request. Login and token issuance live
// outside this service; tokens are only verified here.
type Claims struct {
	UserID     string `json:"uid"`
	TenantID   string `json:"tid"`
	EmployeeID string `json:"eid,omitempty"`
	RoleName   string `json:"role"`
	jwt.RegisteredClaims
}

type UserContext struct {
	UserID     string
	TenantID   string
	EmployeeID string
	RoleName   string
}

func (u UserContext) IsHR() bool {
	return u.RoleName == RoleHR
}

func ParseToken(secret, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID == "" || claims.TenantID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
