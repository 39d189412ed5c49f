// issue_token выпускает токен для локальной проверки API без провайдера идентификации.
//
//	go run ./scripts -role SECURITY -sections 1,2
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/frontandrew/parking/internal/domain"
	"github.com/frontandrew/parking/internal/pkg/config"
	"github.com/frontandrew/parking/internal/pkg/jwt"
	"github.com/google/uuid"
)

func main() {
	role := flag.String("role", string(domain.RoleAdmin), "ADMIN, USER или SECURITY")
	user := flag.String("user", "", "UUID пользователя (по умолчанию случайный)")
	sections := flag.String("sections", "", "секции через запятую, например 1,2")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	caller := &domain.Caller{
		UserID: uuid.New(),
		Role:   domain.UserRole(strings.ToUpper(*role)),
	}
	if !caller.Role.IsValid() {
		fmt.Fprintf(os.Stderr, "Unknown role %q\n", *role)
		os.Exit(1)
	}

	if *user != "" {
		caller.UserID, err = uuid.Parse(*user)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid user id: %v\n", err)
			os.Exit(1)
		}
	}

	for _, raw := range strings.Split(*sections, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid section id %q\n", raw)
			os.Exit(1)
		}
		caller.AllowedSectionIDs = append(caller.AllowedSectionIDs, id)
	}

	tokens := jwt.NewTokenService(cfg.JWT.SecretKey, cfg.JWT.Issuer, cfg.JWT.AccessExpiry)
	token, expiresAt, err := tokens.GenerateToken(caller)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to issue token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("=========================================")
	fmt.Printf("User:     %s\n", caller.UserID)
	fmt.Printf("Role:     %s\n", caller.Role)
	fmt.Printf("Sections: %v\n", caller.AllowedSectionIDs)
	fmt.Printf("Expires:  %s\n", expiresAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Println("=========================================")
	fmt.Println()
	fmt.Printf("Authorization: Bearer %s\n", token)
}
