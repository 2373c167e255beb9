// Command servicetoken mints bearer tokens for the services that call
// this one: the payment provider (PAYMENT), operators (OPERATOR) and, in
// development, customers (CUSTOMER).
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"github.com/iliyamo/bus-seat-reservation/internal/middleware"
	"github.com/iliyamo/bus-seat-reservation/internal/utils"
)

func main() {
	_ = godotenv.Load()

	secret := flag.StringP("secret", "s", os.Getenv("JWT_SECRET"), "HMAC secret; defaults to $JWT_SECRET")
	subject := flag.String("subject", "", "token subject, e.g. payment-gateway")
	role := flag.StringP("role", "r", middleware.RolePayment, "CUSTOMER, PAYMENT or OPERATOR")
	ttl := flag.Int("ttl", defaultTTL(), "lifetime in minutes; defaults to $ACCESS_TOKEN_TTL_MIN or 15")
	flag.Parse()

	if err := mint(*secret, *subject, *role, *ttl); err != nil {
		fmt.Fprintln(os.Stderr, "servicetoken:", err)
		os.Exit(2)
	}
}

func mint(secret, subject, role string, ttl int) error {
	switch {
	case secret == "":
		return fmt.Errorf("no secret: pass --secret or set JWT_SECRET")
	case subject == "":
		return fmt.Errorf("--subject is required")
	}
	switch role {
	case middleware.RoleCustomer, middleware.RolePayment, middleware.RoleOperator:
	default:
		return fmt.Errorf("unknown role %q", role)
	}
	tok, err := utils.NewAccessToken(secret, subject, role, ttl)
	if err != nil {
		return err
	}
	fmt.Println(tok.Token)
	fmt.Fprintf(os.Stderr, "expires %s\n", tok.Exp.Format("2006-01-02T15:04:05Z07:00"))
	return nil
}

func defaultTTL() int {
	if n, err := strconv.Atoi(os.Getenv("ACCESS_TOKEN_TTL_MIN")); err == nil && n > 0 {
		return n
	}
	return 15
}
