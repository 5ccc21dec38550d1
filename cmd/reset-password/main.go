package main

import (
	"context"
	"log"

	"go-pos-access/internal/config"
	"go-pos-access/internal/repository"
	"go-pos-access/pkg/database"

	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	email := pflag.StringP("email", "e", "", "account to reset (defaults to ADMIN_EMAIL)")
	password := pflag.StringP("password", "p", "", "new password (defaults to ADMIN_PASSWORD)")
	pflag.Parse()

	// 1. Load config
	config.Logger()
	cfg := config.Load()
	if *email == "" {
		*email = cfg.Seed.AdminEmail
	}
	if *password == "" {
		*password = cfg.Seed.AdminPassword
	}
	if len(*password) < 6 {
		log.Fatal("Password must be at least 6 characters")
	}

	// 2. Setup Database
	db, err := database.ConnectDB(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	users := repository.NewUserRepo(db)
	ctx := context.Background()

	// 3. Find account
	user, err := users.FindByEmail(ctx, *email)
	if err != nil {
		log.Fatalf("User %s not found in database: %v", *email, err)
	}

	// 4. Hash new password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	// 5. Update and sign out open sessions
	if err := users.UpdatePassword(ctx, user.ID, string(hashedPassword)); err != nil {
		log.Fatalf("Failed to update password in DB: %v", err)
	}
	if err := users.UpdateTokenVersion(ctx, user.ID, uuid.NewString()); err != nil {
		log.Fatalf("Failed to revoke sessions: %v", err)
	}

	log.Printf("Password for %s has been reset", *email)
}
