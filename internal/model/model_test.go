package model

import (
	"testing"
	"time"

	"go-pos-access/internal/permission"

	"github.com/google/uuid"
)

func TestRoleToResponseMarksUnrestricted(t *testing.T) {
	admin := Role{Name: RoleAdmin, Unrestricted: true, IsSystem: true}
	resp := admin.ToResponse()
	if len(resp.Permissions) != 1 || resp.Permissions[0] != permission.FullSystemAccess {
		t.Errorf("admin permissions = %v", resp.Permissions)
	}

	cashier := Role{Name: RoleCashier}
	cashier.SetPermissions([]permission.Code{permission.ViewSales, permission.CreateSale})
	resp = cashier.ToResponse()
	if len(resp.Permissions) != 2 || resp.Permissions[0] != "CREATE_SALE" || resp.Permissions[1] != "VIEW_SALES" {
		t.Errorf("cashier permissions = %v", resp.Permissions)
	}
}

func TestUserCanUsesAllRoles(t *testing.T) {
	cashier := Role{Name: RoleCashier}
	cashier.SetPermissions([]permission.Code{permission.CreateSale})
	technician := Role{Name: RoleTechnician}
	technician.SetPermissions([]permission.Code{permission.UpdateRepair})

	u := User{Roles: []Role{cashier, technician}}
	if !u.Can(permission.UpdateRepair) {
		t.Error("user should update repairs")
	}
	if u.Can(permission.DeleteUser) {
		t.Error("user should not delete users")
	}
	if (&User{}).Can(permission.ViewSales) {
		t.Error("user without roles was allowed")
	}
}

func TestEffectivePermissions(t *testing.T) {
	admin := User{Roles: []Role{{Name: RoleAdmin, Unrestricted: true}}}
	eff := admin.EffectivePermissions()
	if !eff.Unrestricted || len(eff.Permissions) != len(permission.All()) {
		t.Errorf("admin effective = %+v", eff)
	}

	r := Role{}
	r.SetPermissions([]permission.Code{permission.ViewSales})
	eff = (&User{Roles: []Role{r, r}}).EffectivePermissions()
	if eff.Unrestricted || len(eff.Permissions) != 1 {
		t.Errorf("explicit effective = %+v", eff)
	}
}

func TestRoleFingerprintChangesOnEdit(t *testing.T) {
	a := Role{}
	a.ID = uuid.New()
	a.UpdatedAt = time.Unix(100, 0)
	b := Role{}
	b.ID = uuid.New()
	b.UpdatedAt = time.Unix(200, 0)

	before := RoleFingerprint([]Role{a, b})
	if RoleFingerprint([]Role{b, a}) != before {
		t.Error("fingerprint depends on role order")
	}
	a.UpdatedAt = time.Unix(101, 0)
	if RoleFingerprint([]Role{a, b}) == before {
		t.Error("fingerprint did not change after role edit")
	}
}

func TestSortRolesSystemFirst(t *testing.T) {
	roles := []Role{{Name: "AUDITOR"}, {Name: RoleManager, IsSystem: true}, {Name: RoleAdmin, IsSystem: true}, {Name: "INTERN"}}
	SortRoles(roles)
	want := []string{RoleAdmin, RoleManager, "AUDITOR", "INTERN"}
	for i, r := range roles {
		if r.Name != want[i] {
			t.Fatalf("order = %v", roles)
		}
	}
}

func TestPasswordRoundTrip(t *testing.T) {
	var u User
	if err := u.SetPassword("s3cret!"); err != nil {
		t.Fatalf("SetPassword: %v", err)
	}
	if !u.CheckPassword("s3cret!") || u.CheckPassword("wrong") {
		t.Error("CheckPassword mismatch")
	}
}

func TestStamp(t *testing.T) {
	var r Role
	r.Stamp("alice")
	if r.ID == uuid.Nil || r.CreatedBy != "alice" || r.UpdatedBy != "alice" {
		t.Fatalf("after first stamp: id=%s created=%q updated=%q", r.ID, r.CreatedBy, r.UpdatedBy)
	}
	id := r.ID
	r.Stamp("bob")
	if r.ID != id || r.CreatedBy != "alice" || r.UpdatedBy != "bob" {
		t.Errorf("after second stamp: id=%s created=%q updated=%q", r.ID, r.CreatedBy, r.UpdatedBy)
	}
}
