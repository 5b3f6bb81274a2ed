package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "invoice-reconciler"

// Claims identify the tenant a caller acts for. Subject names the operator or
// service that requested the token.
type Claims struct {
	TenantID uuid.UUID
	Subject  string
}

type tokenClaims struct {
	jwt.RegisteredClaims
	TenantID string `json:"tenant_id"`
}

func GenerateToken(tenantID uuid.UUID, subject string, secret string, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		TenantID: tenantID.String(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("GenerateToken: %w", err)
	}
	return signed, nil
}

func ValidateToken(tokenString string, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &tokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		return nil, fmt.Errorf("ValidateToken: %w", err)
	}

	tc, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("ValidateToken: invalid token claims")
	}

	tenantID, err := uuid.Parse(tc.TenantID)
	if err != nil {
		return nil, fmt.Errorf("ValidateToken: invalid tenant_id in token: %w", err)
	}

	return &Claims{
		TenantID: tenantID,
		Subject:  tc.Subject,
	}, nil
}
