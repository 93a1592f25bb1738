package main

import (
	"fmt"
	"log"
	"time"

	"github.com/pquerna/otp/totp"
)

// Generates a fresh TOTP secret for the admin login. Run once, export
// the secret as ADMIN_TOTP_SECRET and scan the URL with an
// authenticator app.
func main() {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "go-solver",
		AccountName: "admin",
	})
	if err != nil {
		log.Fatalf("Failed to generate TOTP key: %v", err)
	}

	fmt.Printf("Secret:  %s\n", key.Secret())
	fmt.Printf("URL:     %s\n", key.URL())

	code, err := totp.GenerateCode(key.Secret(), time.Now())
	if err != nil {
		log.Fatalf("Failed to generate current code: %v", err)
	}
	fmt.Printf("Current: %s\n", code)
}
