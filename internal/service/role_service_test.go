package service

import (
	"context"
	"errors"
	"testing"

	"go-pos-access/internal/event"
	"go-pos-access/internal/model"
	"go-pos-access/internal/permission"
	"go-pos-access/internal/repository"

	"github.com/google/uuid"
)

type fixture struct {
	ctx    context.Context
	store  *repository.MemoryStore
	events *event.Recorder
	roles  RoleService
	users  UserService
	admin  *model.User // unrestricted caller, not stored
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ctx:    context.Background(),
		store:  repository.NewMemoryStore(),
		events: &event.Recorder{},
	}
	if err := f.store.Roles().SeedDefaults(f.ctx); err != nil {
		t.Fatalf("SeedDefaults: %v", err)
	}
	f.admin = &model.User{Email: "root@example.com", Roles: []model.Role{*f.role(t, model.RoleAdmin)}}
	f.admin.ID = uuid.New()
	f.roles = NewRoleService(f.store.Roles(), f.events)
	f.users = NewUserService(f.store.Users(), f.store.Roles(), f.events)
	return f
}

func (f *fixture) role(t *testing.T, name string) *model.Role {
	t.Helper()
	r, err := f.store.Roles().FindByName(f.ctx, name)
	if err != nil {
		t.Fatalf("FindByName(%s): %v", name, err)
	}
	return r
}

func strPtr(s string) *string { return &s }

func TestCreateRole(t *testing.T) {
	f := newFixture(t)

	role, err := f.roles.Create(f.ctx, &CreateRoleRequest{
		Name:        "  shift_lead ",
		Description: "Opens and closes the till",
		Permissions: []string{"VIEW_SALES", "CREATE_SALE", "VIEW_SALES"},
	}, "actor")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if role.Name != "SHIFT_LEAD" {
		t.Errorf("Name = %q, want SHIFT_LEAD", role.Name)
	}
	if role.IsSystem || role.Unrestricted {
		t.Errorf("custom role flags: system=%v unrestricted=%v", role.IsSystem, role.Unrestricted)
	}
	if got := role.PermissionCodes(); len(got) != 2 {
		t.Errorf("permissions = %v, want 2 codes", got)
	}

	grants := []model.Role{*role}
	u := model.User{Roles: grants}
	if !u.Can(permission.ViewSales) || u.Can(permission.DeleteUser) {
		t.Error("created role grants the wrong permissions")
	}

	if got := f.events.Types(); len(got) != 1 || got[0] != event.RoleCreated {
		t.Errorf("events = %v", got)
	}
}

func TestCreateRoleRejectsEachFieldIndependently(t *testing.T) {
	valid := CreateRoleRequest{Name: "AUDITOR", Description: "Reads reports", Permissions: []string{"VIEW_REPORTS"}}

	tests := []struct {
		name   string
		mutate func(*CreateRoleRequest)
		field  string
	}{
		{"empty name", func(r *CreateRoleRequest) { r.Name = "  " }, "name"},
		{"disallowed characters", func(r *CreateRoleRequest) { r.Name = "shift-lead!" }, "name"},
		{"leading digit", func(r *CreateRoleRequest) { r.Name = "1ST_SHIFT" }, "name"},
		{"empty description", func(r *CreateRoleRequest) { r.Description = "" }, "description"},
		{"no permissions", func(r *CreateRoleRequest) { r.Permissions = nil }, "permissions"},
		{"unknown permission", func(r *CreateRoleRequest) { r.Permissions = []string{"VIEW_SALEZ"} }, "permissions"},
		{"wildcard", func(r *CreateRoleRequest) { r.Permissions = []string{permission.FullSystemAccess} }, "permissions"},
		{"duplicate name", func(r *CreateRoleRequest) { r.Name = "cashier" }, "name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			req := valid
			tt.mutate(&req)

			_, err := f.roles.Create(f.ctx, &req, "actor")
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
			if len(verr.Fields) != 1 || verr.Fields[0].Field != tt.field {
				t.Errorf("fields = %+v, want only %q", verr.Fields, tt.field)
			}
			if len(f.events.Events) != 0 {
				t.Errorf("published %v on failed create", f.events.Types())
			}
		})
	}
}

func TestCreateRoleReportsAllFields(t *testing.T) {
	f := newFixture(t)
	_, err := f.roles.Create(f.ctx, &CreateRoleRequest{}, "actor")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	for _, field := range []string{"name", "description", "permissions"} {
		if !verr.Has(field) {
			t.Errorf("missing error for %s in %+v", field, verr.Fields)
		}
	}
}

func TestSystemRolesAreProtected(t *testing.T) {
	f := newFixture(t)
	admin := f.role(t, model.RoleAdmin)
	manager := f.role(t, model.RoleManager)
	perms := []string{"VIEW_SALES"}

	tests := []struct {
		name string
		run  func() error
	}{
		{"delete admin", func() error { return f.roles.Delete(f.ctx, admin.ID, "actor") }},
		{"delete manager", func() error { return f.roles.Delete(f.ctx, manager.ID, "actor") }},
		{"edit admin permissions", func() error {
			_, err := f.roles.Update(f.ctx, admin.ID, &UpdateRoleRequest{Permissions: &perms}, "actor")
			return err
		}},
		{"rename admin", func() error {
			_, err := f.roles.Update(f.ctx, admin.ID, &UpdateRoleRequest{Name: strPtr("ROOT")}, "actor")
			return err
		}},
		{"rename manager", func() error {
			_, err := f.roles.Update(f.ctx, manager.ID, &UpdateRoleRequest{Name: strPtr("BOSS")}, "actor")
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var perr *ProtectedRoleError
			if err := tt.run(); !errors.As(err, &perr) {
				t.Fatalf("err = %v, want ProtectedRoleError", err)
			}
		})
	}

	after := f.role(t, model.RoleAdmin)
	if !after.Unrestricted || after.Name != model.RoleAdmin {
		t.Errorf("admin role changed: %+v", after)
	}
	if len(f.events.Events) != 0 {
		t.Errorf("published %v for refused edits", f.events.Types())
	}
}

func TestUpdateSystemRolePermissionsAndDescription(t *testing.T) {
	f := newFixture(t)
	manager := f.role(t, model.RoleManager)

	perms := []string{"VIEW_SALES", "CREATE_SALE"}
	updated, err := f.roles.Update(f.ctx, manager.ID, &UpdateRoleRequest{
		Name:        strPtr("manager"), // same name after normalization
		Description: strPtr("Store manager"),
		Permissions: &perms,
	}, "actor")
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Description != "Store manager" {
		t.Errorf("Description = %q", updated.Description)
	}

	u := model.User{Roles: []model.Role{*updated}}
	if !u.Can(permission.ViewSales) {
		t.Error("MANAGER cannot VIEW_SALES")
	}
	if u.Can(permission.DeleteUser) {
		t.Error("MANAGER can DELETE_USER")
	}
	if got := f.events.Types(); len(got) != 1 || got[0] != event.RoleUpdated {
		t.Errorf("events = %v", got)
	}
}

func TestUpdateRoleValidation(t *testing.T) {
	f := newFixture(t)
	custom, err := f.roles.Create(f.ctx, &CreateRoleRequest{Name: "AUDITOR", Description: "Reads reports", Permissions: []string{"VIEW_REPORTS"}}, "actor")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	empty := []string{}
	_, err = f.roles.Update(f.ctx, custom.ID, &UpdateRoleRequest{Name: strPtr("CASHIER"), Description: strPtr(""), Permissions: &empty}, "actor")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	for _, field := range []string{"name", "description", "permissions"} {
		if !verr.Has(field) {
			t.Errorf("missing error for %s in %+v", field, verr.Fields)
		}
	}

	renamed, err := f.roles.Update(f.ctx, custom.ID, &UpdateRoleRequest{Name: strPtr("report_reader")}, "actor")
	if err != nil {
		t.Fatalf("rename custom role: %v", err)
	}
	if renamed.Name != "REPORT_READER" || len(renamed.PermissionCodes()) != 1 {
		t.Errorf("renamed = %+v", renamed)
	}
}

func TestUpdateAndDeleteUnknownRole(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()
	var nf *NotFoundError

	if _, err := f.roles.Update(f.ctx, id, &UpdateRoleRequest{Description: strPtr("x")}, "actor"); !errors.As(err, &nf) {
		t.Errorf("Update err = %v, want NotFoundError", err)
	}
	if err := f.roles.Delete(f.ctx, id, "actor"); !errors.As(err, &nf) {
		t.Errorf("Delete err = %v, want NotFoundError", err)
	}
	if _, err := f.roles.Get(f.ctx, id); !errors.As(err, &nf) {
		t.Errorf("Get err = %v, want NotFoundError", err)
	}
}

func TestDeleteRoleInUse(t *testing.T) {
	f := newFixture(t)
	custom, err := f.roles.Create(f.ctx, &CreateRoleRequest{Name: "AUDITOR", Description: "Reads reports", Permissions: []string{"VIEW_REPORTS"}}, "actor")
	if err != nil {
		t.Fatalf("Create role: %v", err)
	}
	user, err := f.users.CreateUser(f.ctx, &CreateUserRequest{
		Email: "audit@example.com", Password: "secret1", FullName: "Audit", RoleIDs: []string{custom.ID.String()},
	}, f.admin)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	var inUse *RoleInUseError
	if err := f.roles.Delete(f.ctx, custom.ID, "actor"); !errors.As(err, &inUse) {
		t.Fatalf("err = %v, want RoleInUseError", err)
	}
	if inUse.Holders != 1 {
		t.Errorf("Holders = %d, want 1", inUse.Holders)
	}

	cashier := f.role(t, model.RoleCashier)
	if _, err := f.users.AssignRoles(f.ctx, user.ID, []string{cashier.ID.String()}, f.admin); err != nil {
		t.Fatalf("AssignRoles: %v", err)
	}
	if err := f.roles.Delete(f.ctx, custom.ID, "actor"); err != nil {
		t.Fatalf("Delete after reassignment: %v", err)
	}
	types := f.events.Types()
	if types[len(types)-1] != event.RoleDeleted {
		t.Errorf("last event = %s, want %s", types[len(types)-1], event.RoleDeleted)
	}
}

func TestListOrdersSystemRolesFirst(t *testing.T) {
	f := newFixture(t)
	if _, err := f.roles.Create(f.ctx, &CreateRoleRequest{Name: "AAA", Description: "first by name", Permissions: []string{"VIEW_SALES"}}, "actor"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	roles, err := f.roles.List(f.ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(roles) != len(model.DefaultRoles)+1 {
		t.Fatalf("got %d roles", len(roles))
	}
	if last := roles[len(roles)-1]; last.Name != "AAA" {
		t.Errorf("last role = %s, want the custom role", last.Name)
	}
}

func TestMatrix(t *testing.T) {
	f := newFixture(t)
	m, err := f.roles.Matrix(f.ctx)
	if err != nil {
		t.Fatalf("Matrix: %v", err)
	}
	if len(m.Categories) != len(permission.Categories()) {
		t.Errorf("categories = %d", len(m.Categories))
	}
	for _, row := range m.Roles {
		switch row.Role.Name {
		case model.RoleAdmin:
			if row.Editable {
				t.Error("ADMIN row is editable")
			}
			for code, ok := range row.Granted {
				if !ok {
					t.Errorf("ADMIN row misses %s", code)
				}
			}
		case model.RoleCashier:
			if !row.Editable {
				t.Error("CASHIER row is not editable")
			}
			if !row.Granted[permission.CreateSale] || row.Granted[permission.DeleteUser] {
				t.Errorf("CASHIER row = %v", row.Granted)
			}
		}
		if len(row.Granted) != len(permission.All()) {
			t.Errorf("%s row has %d cells", row.Role.Name, len(row.Granted))
		}
	}
}
