// Package testhelpers provides utilities for testing ekaya-catalog components.
package testhelpers

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TestJWTSecret is the signing secret handler tests configure the auth service with.
const TestJWTSecret = "test-jwt-secret"

// GenerateTestToken signs an HS256 API token for the given user, valid for one hour.
func GenerateTestToken(secret string, userID int64, username string) string {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  strconv.FormatInt(userID, 10),
		"name": username,
		"iss":  "ekaya-catalog",
		"iat":  now.Unix(),
		"exp":  now.Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		panic(err)
	}
	return signed
}

// GenerateTestTokenWithBearer returns the token with "Bearer " prefix for the Authorization header.
func GenerateTestTokenWithBearer(secret string, userID int64, username string) string {
	return "Bearer " + GenerateTestToken(secret, userID, username)
}
