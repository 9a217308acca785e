package utils

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var ErrMissingUserID = errors.New("token has no user_id claim")

// ParseToken validates tokenString against secret and returns its user_id claim.
func ParseToken(secret, tokenString string) (int64, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	if err != nil {
		return 0, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, ErrMissingUserID
	}
	userID, ok := claims["user_id"].(float64)
	if !ok {
		return 0, ErrMissingUserID
	}
	return int64(userID), nil
}
