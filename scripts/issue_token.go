//go:build ignore

// Issues an access token for local testing:
//
//	go run scripts/issue_token.go -user 1 -email admin@example.com -admin
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/pkg/auth"
)

func main() {
	userID := flag.Uint("user", 0, "user id")
	email := flag.String("email", "", "user email")
	admin := flag.Bool("admin", false, "grant admin access")
	flag.Parse()

	if *userID == 0 {
		log.Fatal("Usage: go run scripts/issue_token.go -user <id> [-email <email>] [-admin]")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	token, err := auth.NewJWTManager(cfg).GenerateAccessToken(uint(*userID), *email, *admin)
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}

	claims, err := auth.NewJWTManager(cfg).ValidateAccessToken(token)
	if err != nil {
		log.Fatalf("Token verification failed: %v", err)
	}

	fmt.Printf("User: %d (admin=%t)\n", claims.UserID, claims.IsAdmin)
	fmt.Printf("Expires: %s\n", claims.ExpiresAt.Time.Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("Authorization: Bearer %s\n", token)
}
