// Command token mints an HS256 dev token for running the client against
// a local server. The secret must match the server's signing secret.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func main() {
	userID := flag.Int64("user-id", 1, "User id claim")
	name := flag.String("name", "", "Display name claim")
	email := flag.String("email", "", "Email claim")
	expiry := flag.Duration("expiry", 24*time.Hour, "Token lifetime")
	flag.Parse()

	secret := os.Getenv("AUTH_SECRET")
	if secret == "" {
		log.Fatal("AUTH_SECRET is required")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"userId": *userID,
		"name":   *name,
		"email":  *email,
		"iat":    now.Unix(),
		"exp":    now.Add(*expiry).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		log.Fatalf("failed to sign token: %v", err)
	}

	fmt.Println(signed)
}
