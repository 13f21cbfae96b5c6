package identity

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestFromToken(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"userId": 7,
		"name":   "alice",
		"email":  "alice@example.com",
	})

	id, err := FromToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id.UserID)
	assert.Equal(t, "alice", id.Name)
	assert.Equal(t, "alice@example.com", id.Email)
}

func TestFromToken_MissingUserID(t *testing.T) {
	token := signToken(t, jwt.MapClaims{"name": "alice"})

	_, err := FromToken(token)
	assert.ErrorIs(t, err, ErrNoUserID)
}

func TestFromToken_Garbage(t *testing.T) {
	_, err := FromToken("not-a-jwt")
	assert.Error(t, err)
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name string
		id   Identity
		want string
	}{
		{"name wins", Identity{Name: "alice", Email: "a@x", Phone: "1"}, "alice"},
		{"email fallback", Identity{Email: "a@x", Phone: "1"}, "a@x"},
		{"phone fallback", Identity{Phone: "1"}, "1"},
		{"all empty", Identity{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.id.DisplayName())
		})
	}
}
