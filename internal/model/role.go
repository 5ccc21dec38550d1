package model

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"go-pos-access/internal/permission"
	"go-pos-access/internal/policy"

	"github.com/google/uuid"
)

// Role is a named bundle of permissions. A role is either Unrestricted
// (grants every permission) or carries an explicit set in Permissions; the
// two are never mixed.
type Role struct {
	BaseModel
	Name         string           `gorm:"type:varchar(50);uniqueIndex;not null" json:"name"`
	Description  string           `gorm:"type:text" json:"description"`
	Unrestricted bool             `gorm:"default:false" json:"unrestricted"`
	IsSystem     bool             `gorm:"default:false" json:"is_system"` // system roles cannot be deleted or renamed
	Permissions  []RolePermission `gorm:"foreignKey:RoleID;constraint:OnDelete:CASCADE" json:"-"`
}

// RolePermission is one explicit grant row.
type RolePermission struct {
	RoleID uuid.UUID       `gorm:"type:uuid;primaryKey" json:"role_id"`
	Code   permission.Code `gorm:"type:varchar(64);primaryKey" json:"code"`
}

func (RolePermission) TableName() string {
	return "role_permissions"
}

// Role names as constants
const (
	RoleAdmin      = "ADMIN"
	RoleManager    = "MANAGER"
	RoleCashier    = "CASHIER"
	RoleTechnician = "TECHNICIAN"
)

// Grant returns the policy view of the role.
func (r *Role) Grant() policy.Grant {
	if r.Unrestricted {
		return policy.Unrestricted()
	}
	return policy.Explicit(r.PermissionCodes()...)
}

// PermissionCodes returns the explicit codes, sorted.
func (r *Role) PermissionCodes() []permission.Code {
	codes := make([]permission.Code, len(r.Permissions))
	for i, p := range r.Permissions {
		codes[i] = p.Code
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// SetPermissions replaces the explicit set with codes.
func (r *Role) SetPermissions(codes []permission.Code) {
	r.Permissions = make([]RolePermission, len(codes))
	for i, c := range codes {
		r.Permissions[i] = RolePermission{RoleID: r.ID, Code: c}
	}
}

// RoleResponse is the wire shape of a role. Unrestricted roles list the
// FULL_SYSTEM_ACCESS marker as their only permission.
type RoleResponse struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	IsSystem     bool      `json:"is_system"`
	Unrestricted bool      `json:"unrestricted"`
	Permissions  []string  `json:"permissions"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ToResponse converts Role to RoleResponse
func (r *Role) ToResponse() RoleResponse {
	perms := []string{permission.FullSystemAccess}
	if !r.Unrestricted {
		codes := r.PermissionCodes()
		perms = make([]string, len(codes))
		for i, c := range codes {
			perms[i] = string(c)
		}
	}
	return RoleResponse{
		ID:           r.ID,
		Name:         r.Name,
		Description:  r.Description,
		IsSystem:     r.IsSystem,
		Unrestricted: r.Unrestricted,
		Permissions:  perms,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// SortRoles orders roles system first, then by name.
func SortRoles(roles []Role) {
	sort.SliceStable(roles, func(i, j int) bool {
		if roles[i].IsSystem != roles[j].IsSystem {
			return roles[i].IsSystem
		}
		return roles[i].Name < roles[j].Name
	})
}

// RoleFingerprint identifies a role assignment together with the version of
// each role, so any edit to one of the roles yields a different value.
func RoleFingerprint(roles []Role) string {
	parts := make([]string, len(roles))
	for i, r := range roles {
		parts[i] = r.ID.String() + "@" + strconv.FormatInt(r.UpdatedAt.UnixNano(), 10)
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

// DefaultRole is a built-in role seeded at startup.
type DefaultRole struct {
	Name         string
	Description  string
	Unrestricted bool
	Permissions  []permission.Code
}

// DefaultRoles defines the built-in roles. They are seeded as system roles.
var DefaultRoles = []DefaultRole{
	{
		Name:         RoleAdmin,
		Description:  "Full system access",
		Unrestricted: true,
	},
	{
		Name:        RoleManager,
		Description: "Runs the shop floor: sales, stock, pricing, repairs and staff attendance",
		Permissions: []permission.Code{
			permission.CreateSale, permission.ViewSales, permission.VoidSale, permission.ApplyDiscount, permission.ProcessRefund,
			permission.ViewProducts, permission.CreateProduct, permission.UpdateProduct, permission.ViewStock, permission.AdjustStock, permission.TransferStock,
			permission.ViewPricing, permission.UpdatePricing,
			permission.ViewCustomers, permission.CreateCustomer, permission.UpdateCustomer,
			permission.ViewRepairs, permission.CreateRepair, permission.UpdateRepair, permission.AssignRepair, permission.CloseRepair,
			permission.ViewWarranties, permission.CreateWarranty, permission.ProcessWarrantyClaim,
			permission.ViewAttendance, permission.RecordAttendance, permission.ManageAttendance,
			permission.ViewUsers, permission.ViewRoles,
			permission.ViewReports, permission.ExportReports,
		},
	},
	{
		Name:        RoleCashier,
		Description: "Register sales and look after customers",
		Permissions: []permission.Code{
			permission.CreateSale, permission.ViewSales, permission.ApplyDiscount,
			permission.ViewProducts, permission.ViewStock, permission.ViewPricing,
			permission.ViewCustomers, permission.CreateCustomer, permission.UpdateCustomer,
			permission.ViewWarranties, permission.RecordAttendance,
		},
	},
	{
		Name:        RoleTechnician,
		Description: "Diagnose and repair devices",
		Permissions: []permission.Code{
			permission.ViewRepairs, permission.UpdateRepair, permission.CloseRepair,
			permission.ViewProducts, permission.ViewStock,
			permission.ViewCustomers,
			permission.ViewWarranties, permission.ProcessWarrantyClaim,
			permission.RecordAttendance,
		},
	},
}

// NewRole builds a system Role from a default definition.
func (d DefaultRole) NewRole() *Role {
	role := &Role{
		Name:         d.Name,
		Description:  d.Description,
		Unrestricted: d.Unrestricted,
		IsSystem:     true,
	}
	role.Stamp("system")
	if !d.Unrestricted {
		role.SetPermissions(d.Permissions)
	}
	return role
}
