package repository

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"go-pos-access/internal/config"
	"go-pos-access/internal/model"
	"go-pos-access/internal/permission"
	"go-pos-access/pkg/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// postgresDB connects to TEST_DATABASE_URL and migrates it. Tests that need
// it are skipped when the variable is unset.
func postgresDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := database.ConnectDB(config.DatabaseConfig{URL: dsn})
	if err != nil {
		t.Fatalf("ConnectDB: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func uniqueName(prefix string) string {
	return prefix + "_" + strings.ToUpper(uuid.NewString()[:8])
}

func createTestRole(t *testing.T, db *gorm.DB, repo RoleRepository, codes ...permission.Code) *model.Role {
	t.Helper()
	role := &model.Role{Name: uniqueName("T"), Description: "integration"}
	role.Stamp("test")
	role.SetPermissions(codes)
	if err := repo.Create(context.Background(), role); err != nil {
		t.Fatalf("Create role: %v", err)
	}
	t.Cleanup(func() {
		db.Where("role_id = ?", role.ID).Delete(&model.UserRole{})
		db.Where("role_id = ?", role.ID).Delete(&model.RolePermission{})
		db.Unscoped().Delete(&model.Role{}, "id = ?", role.ID)
	})
	return role
}

func createTestUser(t *testing.T, db *gorm.DB, repo UserRepository, roles ...model.Role) *model.User {
	t.Helper()
	user := &model.User{
		Email:    strings.ToLower(uniqueName("u")) + "@example.com",
		Password: "hash",
		FullName: "Integration",
		IsActive: true,
		Roles:    roles,
	}
	user.Stamp("test")
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("Create user: %v", err)
	}
	t.Cleanup(func() {
		db.Where("user_id = ?", user.ID).Delete(&model.UserRole{})
		db.Unscoped().Delete(&model.User{}, "id = ?", user.ID)
	})
	return user
}

func TestGormRoleUpdateReplacesPermissions(t *testing.T) {
	db := postgresDB(t)
	ctx := context.Background()
	repo := NewRoleRepo(db)
	role := createTestRole(t, db, repo, permission.ViewSales, permission.CreateSale)

	role.SetPermissions([]permission.Code{permission.ViewStock})
	if err := repo.Update(ctx, role); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err := repo.FindByID(ctx, role.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if codes := got.PermissionCodes(); len(codes) != 1 || codes[0] != permission.ViewStock {
		t.Errorf("permissions = %v, want [VIEW_STOCK]", codes)
	}

	// Turning a role unrestricted drops every explicit row.
	got.Unrestricted = true
	got.SetPermissions(nil)
	if err := repo.Update(ctx, got); err != nil {
		t.Fatalf("Update unrestricted: %v", err)
	}
	var rows int64
	db.Model(&model.RolePermission{}).Where("role_id = ?", role.ID).Count(&rows)
	if rows != 0 {
		t.Errorf("%d permission rows left on unrestricted role", rows)
	}
}

func TestGormErrorsTranslate(t *testing.T) {
	db := postgresDB(t)
	ctx := context.Background()
	roles := NewRoleRepo(db)
	users := NewUserRepo(db)
	role := createTestRole(t, db, roles, permission.ViewSales)

	dup := &model.Role{Name: role.Name, Description: "copy"}
	dup.Stamp("test")
	if err := roles.Create(ctx, dup); !errors.Is(err, ErrDuplicate) {
		t.Errorf("duplicate name err = %v, want ErrDuplicate", err)
	}
	if _, err := roles.FindByID(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindByID err = %v, want ErrNotFound", err)
	}
	if err := roles.Delete(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete err = %v, want ErrNotFound", err)
	}
	if err := users.UpdateLastSeen(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateLastSeen err = %v, want ErrNotFound", err)
	}
	if err := users.Delete(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete user err = %v, want ErrNotFound", err)
	}
}

func TestGormCountHoldersSkipsDeletedUsers(t *testing.T) {
	db := postgresDB(t)
	ctx := context.Background()
	roles := NewRoleRepo(db)
	users := NewUserRepo(db)
	role := createTestRole(t, db, roles, permission.ViewSales)

	createTestUser(t, db, users, *role)
	gone := createTestUser(t, db, users, *role)
	// Soft delete directly so the user_roles link survives.
	if err := db.Delete(&model.User{}, "id = ?", gone.ID).Error; err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	n, err := roles.CountHolders(ctx, role.ID)
	if err != nil {
		t.Fatalf("CountHolders: %v", err)
	}
	if n != 1 {
		t.Errorf("CountHolders = %d, want 1", n)
	}
}

func TestGormUserUpdateRelinksRoles(t *testing.T) {
	db := postgresDB(t)
	ctx := context.Background()
	roles := NewRoleRepo(db)
	users := NewUserRepo(db)
	a := createTestRole(t, db, roles, permission.ViewSales)
	b := createTestRole(t, db, roles, permission.ViewRepairs)

	// The same role twice links once.
	user := createTestUser(t, db, users, *a, *a)
	user.Roles = []model.Role{*b}
	user.FullName = "Renamed"
	if err := users.Update(ctx, user); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := users.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.FullName != "Renamed" || len(got.Roles) != 1 || got.Roles[0].ID != b.ID {
		t.Errorf("user = %q roles %v", got.FullName, got.RoleNames())
	}
	if !got.Can(permission.ViewRepairs) || got.Can(permission.ViewSales) {
		t.Error("relinked roles not reflected in permissions")
	}
	if n, _ := roles.CountHolders(ctx, a.ID); n != 0 {
		t.Errorf("old role still has %d holders", n)
	}
}
