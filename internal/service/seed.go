package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"go-pos-access/internal/model"
	"go-pos-access/internal/repository"
)

// Seed creates the built-in roles and, when no account uses email yet, an
// active administrator holding the ADMIN role. Running it again is a no-op.
func Seed(ctx context.Context, users repository.UserRepository, roles repository.RoleRepository, email, password string) error {
	// 1. Seed roles
	if err := roles.SeedDefaults(ctx); err != nil {
		return fmt.Errorf("seed roles: %w", err)
	}

	// 2. Create default admin user with ADMIN role
	_, err := users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("find admin: %w", err)
	}

	adminRole, err := roles.FindByName(ctx, model.RoleAdmin)
	if err != nil {
		return fmt.Errorf("find %s role: %w", model.RoleAdmin, err)
	}

	admin := &model.User{
		Email:    email,
		FullName: "Administrator",
		IsActive: true,
		Roles:    []model.Role{*adminRole},
	}
	admin.Stamp("system")
	if err := admin.SetPassword(password); err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	if err := users.Create(ctx, admin); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	log.Printf("Admin user created: %s (%s)", email, model.RoleAdmin)
	return nil
}
