// Command gentoken mints an access token with the server's configured secret
// so the API can be exercised with curl without logging in.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/Togather-Foundation/conflicts/internal/auth"
	"github.com/Togather-Foundation/conflicts/internal/config"
)

func main() {
	userID := flag.Int64("user-id", 1, "subject account id")
	username := flag.String("username", "admin", "username claim")
	role := flag.String("role", "admin", "role claim (user or admin)")
	flag.Parse()

	if err := run(*userID, *username, *role); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(userID int64, username, roleName string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	role := auth.NormalizeRole(roleName)
	if role == "" {
		return fmt.Errorf("unknown role %q", roleName)
	}

	tokens := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry, cfg.Auth.Issuer)
	token, expiresAt, err := tokens.IssueAccess(userID, username, role)
	if err != nil {
		return err
	}

	fmt.Println("JWT Token:")
	fmt.Println(token)
	fmt.Printf("\nExpires at %s\n", expiresAt.Format("2006-01-02T15:04:05Z07:00"))
	fmt.Println("\nTest with:")
	fmt.Printf("curl -H 'Authorization: Bearer %s' http://localhost:%d/api/events\n", token, cfg.Server.Port)
	return nil
}
