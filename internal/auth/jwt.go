package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "waveportal"

var ErrNoAddress = errors.New("token has no wallet address")

// Claims ties a session to a wallet address that passed the EIP-191 proof.
type Claims struct {
	Address string `json:"address"`
	jwt.RegisteredClaims
}

// GenerateJWT выдаёт токен для подтверждённого адреса.
// Если expiration <= 0, токен живёт 24h.
func GenerateJWT(secret, address string, expiration time.Duration) (string, error) {
	if address == "" {
		return "", ErrNoAddress
	}
	if expiration <= 0 {
		expiration = 24 * time.Hour
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Address: address,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   address,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiration)),
		},
	})
	return token.SignedString([]byte(secret))
}

// ParseJWT accepts only HS256 tokens from this issuer that carry an expiry.
func ParseJWT(secret, tokenStr string) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenStr, &claims,
		func(*jwt.Token) (interface{}, error) { return []byte(secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if claims.Address == "" {
		return nil, ErrNoAddress
	}
	return &claims, nil
}
