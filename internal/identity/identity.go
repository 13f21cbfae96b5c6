// Package identity extracts the local user's identity from the auth token.
// The token is issued and verified by the chat server; the client only
// needs the claims, so the signature is not checked here.
package identity

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var ErrNoUserID = errors.New("token has no userId claim")

type Identity struct {
	UserID int64
	Name   string
	Email  string
	Phone  string
}

// DisplayName picks the name announced in join-room events:
// profile name, falling back to email, then phone.
func (id Identity) DisplayName() string {
	switch {
	case id.Name != "":
		return id.Name
	case id.Email != "":
		return id.Email
	default:
		return id.Phone
	}
}

// FromToken parses the JWT claims without verifying the signature.
func FromToken(token string) (Identity, error) {
	parser := jwt.NewParser()

	var claims jwt.MapClaims
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return Identity{}, fmt.Errorf("failed to parse token: %w", err)
	}

	id := Identity{
		Name:  stringClaim(claims, "name"),
		Email: stringClaim(claims, "email"),
		Phone: stringClaim(claims, "phone"),
	}

	// Numeric claims decode as float64.
	userID, ok := claims["userId"].(float64)
	if !ok {
		return Identity{}, ErrNoUserID
	}
	id.UserID = int64(userID)

	return id, nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	s, _ := claims[key].(string)
	return s
}
