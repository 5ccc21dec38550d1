package middleware

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"go-pos-access/internal/model"
	"go-pos-access/internal/permission"
	"go-pos-access/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// stubAuth maps tokens to users.
type stubAuth map[string]*model.User

func (s stubAuth) Authenticate(_ context.Context, token string) (*model.User, error) {
	if token == "replaced" {
		return nil, service.ErrSessionReplaced
	}
	u, ok := s[token]
	if !ok {
		return nil, service.ErrUserNotFound
	}
	return u, nil
}

func role(name string, codes ...permission.Code) model.Role {
	r := model.Role{Name: name}
	r.ID = uuid.New()
	r.SetPermissions(codes)
	return r
}

func newApp(auth Authenticator, guard fiber.Handler) *fiber.App {
	app := fiber.New()
	app.Get("/protected", RequireAuth(auth), guard, func(c *fiber.Ctx) error {
		return c.SendString(CurrentUser(c).Email)
	})
	return app
}

func do(t *testing.T, app *fiber.App, token string) (int, string) {
	t.Helper()
	req := httptest.NewRequest("GET", "/protected", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestGuard(t *testing.T) {
	admin := model.Role{Name: model.RoleAdmin, Unrestricted: true}
	users := stubAuth{
		"manager": {Email: "m@example.com", Roles: []model.Role{role("MANAGER", permission.ViewSales, permission.CreateSale)}},
		"multi":   {Email: "x@example.com", Roles: []model.Role{role("CASHIER", permission.CreateSale), role("TECHNICIAN", permission.UpdateRepair)}},
		"admin":   {Email: "a@example.com", Roles: []model.Role{admin}},
		"norole":  {Email: "n@example.com"},
	}

	tests := []struct {
		name   string
		guard  fiber.Handler
		token  string
		status int
	}{
		{"manager views sales", RequirePermission(permission.ViewSales), "manager", fiber.StatusOK},
		{"manager deletes user", RequirePermission(permission.DeleteUser), "manager", fiber.StatusForbidden},
		{"second role grants", RequirePermission(permission.UpdateRepair), "multi", fiber.StatusOK},
		{"union still denies", RequirePermission(permission.DeleteUser), "multi", fiber.StatusForbidden},
		{"admin passes anything", RequirePermission("ANY_RANDOM_CODE"), "admin", fiber.StatusOK},
		{"no roles", RequirePermission(permission.ViewSales), "norole", fiber.StatusForbidden},
		{"any-of", RequireAnyPermission(permission.DeleteUser, permission.CreateSale), "multi", fiber.StatusOK},
		{"empty any-of", RequireAnyPermission(), "admin", fiber.StatusForbidden},
		{"no token", RequirePermission(permission.ViewSales), "", fiber.StatusUnauthorized},
		{"unknown token", RequirePermission(permission.ViewSales), "bogus", fiber.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := do(t, newApp(users, tt.guard), tt.token)
			if status != tt.status {
				t.Fatalf("status = %d, want %d (%s)", status, tt.status, body)
			}
			if status == fiber.StatusForbidden {
				var got map[string]string
				if err := json.Unmarshal([]byte(body), &got); err != nil || got["message"] != "Forbidden" {
					t.Errorf("body = %s", body)
				}
			}
		})
	}
}

func TestRequireAuthMessages(t *testing.T) {
	app := newApp(stubAuth{}, RequirePermission(permission.ViewSales))

	_, body := do(t, app, "replaced")
	var got map[string]string
	json.Unmarshal([]byte(body), &got)
	if got["message"] != service.ErrSessionReplaced.Error() {
		t.Errorf("message = %q", got["message"])
	}

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Token abc")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestGuardWithoutAuth(t *testing.T) {
	app := fiber.New()
	app.Get("/open", RequirePermission(permission.ViewSales), func(c *fiber.Ctx) error { return c.SendStatus(200) })
	resp, err := app.Test(httptest.NewRequest("GET", "/open", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusForbidden {
		t.Errorf("status = %d, want 403", resp.StatusCode)
	}
}

func TestQueryTokenOnlyOnUpgrade(t *testing.T) {
	users := stubAuth{"manager": {Email: "m@example.com", Roles: []model.Role{role("MANAGER", permission.ViewRoles)}}}
	app := newApp(users, RequirePermission(permission.ViewRoles))

	tests := []struct {
		name    string
		upgrade bool
		status  int
	}{
		{"plain request", false, fiber.StatusUnauthorized},
		{"websocket handshake", true, fiber.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/protected?access_token=manager", nil)
			if tt.upgrade {
				req.Header.Set("Connection", "Upgrade")
				req.Header.Set("Upgrade", "websocket")
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
		})
	}
}
