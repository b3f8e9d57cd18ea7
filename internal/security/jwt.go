package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token subjects distinguishing seller and admin credentials.
const (
	subjectSeller = "seller"
	subjectAdmin  = "admin"
)

// ErrInvalidToken indicates a token that failed parsing or validation.
var ErrInvalidToken = errors.New("security: invalid token")

// SellerClaims carries the authenticated seller identity.
type SellerClaims struct {
	SellerID uint64 `json:"seller_id"`
	jwt.RegisteredClaims
}

// AdminClaims carries the authenticated admin identity.
type AdminClaims struct {
	AdminID uint64 `json:"admin_id"`
	jwt.RegisteredClaims
}

// SignSellerToken issues an HMAC-signed seller token.
func SignSellerToken(secret string, expiry time.Duration, sellerID uint64) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", errors.New("security: empty jwt secret")
	}
	now := time.Now().UTC()
	claims := SellerClaims{
		SellerID: sellerID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectSeller,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, errSign := token.SignedString([]byte(secret))
	if errSign != nil {
		return "", fmt.Errorf("security: sign seller token: %w", errSign)
	}
	return signed, nil
}

// ParseSellerToken validates a seller token and returns its claims.
func ParseSellerToken(secret, raw string) (*SellerClaims, error) {
	claims := &SellerClaims{}
	if errParse := parseToken(secret, raw, claims); errParse != nil {
		return nil, errParse
	}
	if claims.Subject != subjectSeller || claims.SellerID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// SignAdminToken issues an HMAC-signed admin token.
func SignAdminToken(secret string, expiry time.Duration, adminID uint64) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", errors.New("security: empty jwt secret")
	}
	now := time.Now().UTC()
	claims := AdminClaims{
		AdminID: adminID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectAdmin,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, errSign := token.SignedString([]byte(secret))
	if errSign != nil {
		return "", fmt.Errorf("security: sign admin token: %w", errSign)
	}
	return signed, nil
}

// ParseAdminToken validates an admin token and returns its claims.
func ParseAdminToken(secret, raw string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	if errParse := parseToken(secret, raw, claims); errParse != nil {
		return nil, errParse
	}
	if claims.Subject != subjectAdmin || claims.AdminID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func parseToken(secret, raw string, claims jwt.Claims) error {
	token, errParse := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("security: unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if errParse != nil || !token.Valid {
		return ErrInvalidToken
	}
	return nil
}
