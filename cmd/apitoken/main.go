// Command apitoken mints a bearer token for the query API.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/akiftaxi/gatekeeper/internal/auth"
)

func main() {
	subject := flag.String("subject", "operator", "token subject")
	role := flag.String("role", "admin", "token role claim")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	_ = godotenv.Load()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		fmt.Fprintln(os.Stderr, "JWT_SECRET is required")
		os.Exit(1)
	}
	issuer := os.Getenv("JWT_ISSUER")
	if issuer == "" {
		issuer = "gatekeeper"
	}

	svc := auth.NewTokenService([]byte(secret), issuer, *ttl)
	token, err := svc.Issue(*subject, *role)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to issue token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
