// Command accesstoken issues an access token for the Person pages, signed
// with the configured access secret. It is meant for local runs and smoke
// tests when no login service is available.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/erp/personportal/internal/infrastructure/auth"
	"github.com/erp/personportal/internal/infrastructure/config"
)

func main() {
	subject := flag.String("sub", "", "user id to put in the token (required)")
	name := flag.String("name", "", "display name shown in the page header")
	ttl := flag.Duration("ttl", 8*time.Hour, "token lifetime")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load configuration:", err)
		os.Exit(1)
	}
	if cfg.Access.Secret == "" {
		fmt.Fprintln(os.Stderr, "access.secret is not set")
		os.Exit(1)
	}

	token, expiresAt, err := auth.NewTokenService(cfg.Access).Generate(*subject, *name, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to issue token:", err)
		os.Exit(1)
	}

	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "cookie %s, expires %s\n", cfg.Access.CookieName, expiresAt.Format(time.RFC3339))
}
