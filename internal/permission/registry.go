// Package permission holds the static registry of permission codes the
// console gates on. The registry is defined at build time and never changes
// at runtime, so every function here is safe for concurrent use.
package permission

import (
	"errors"
	"fmt"
	"strings"
)

// Code identifies a single capability, e.g. "CREATE_SALE".
type Code string

// FullSystemAccess is the wire-level marker for an unrestricted role. It is
// not a Code: unrestricted grants are modelled by policy.Unrestricted.
const FullSystemAccess = "FULL_SYSTEM_ACCESS"

var ErrUnknownCode = errors.New("unknown permission code")

// Permission codes
const (
	// Sales Operations
	CreateSale    Code = "CREATE_SALE"
	ViewSales     Code = "VIEW_SALES"
	VoidSale      Code = "VOID_SALE"
	ApplyDiscount Code = "APPLY_DISCOUNT"
	ProcessRefund Code = "PROCESS_REFUND"

	// Inventory
	ViewProducts  Code = "VIEW_PRODUCTS"
	CreateProduct Code = "CREATE_PRODUCT"
	UpdateProduct Code = "UPDATE_PRODUCT"
	DeleteProduct Code = "DELETE_PRODUCT"
	ViewStock     Code = "VIEW_STOCK"
	AdjustStock   Code = "ADJUST_STOCK"
	TransferStock Code = "TRANSFER_STOCK"

	// Pricing
	ViewPricing   Code = "VIEW_PRICING"
	UpdatePricing Code = "UPDATE_PRICING"

	// Customer Management
	ViewCustomers  Code = "VIEW_CUSTOMERS"
	CreateCustomer Code = "CREATE_CUSTOMER"
	UpdateCustomer Code = "UPDATE_CUSTOMER"
	DeleteCustomer Code = "DELETE_CUSTOMER"

	// Repair Management
	ViewRepairs  Code = "VIEW_REPAIRS"
	CreateRepair Code = "CREATE_REPAIR"
	UpdateRepair Code = "UPDATE_REPAIR"
	AssignRepair Code = "ASSIGN_REPAIR"
	CloseRepair  Code = "CLOSE_REPAIR"

	// Warranty Management
	ViewWarranties       Code = "VIEW_WARRANTIES"
	CreateWarranty       Code = "CREATE_WARRANTY"
	ProcessWarrantyClaim Code = "PROCESS_WARRANTY_CLAIM"

	// Attendance
	ViewAttendance   Code = "VIEW_ATTENDANCE"
	RecordAttendance Code = "RECORD_ATTENDANCE"
	ManageAttendance Code = "MANAGE_ATTENDANCE"

	// User Management
	ViewUsers  Code = "VIEW_USERS"
	CreateUser Code = "CREATE_USER"
	UpdateUser Code = "UPDATE_USER"
	DeleteUser Code = "DELETE_USER"

	// Role Management
	ViewRoles   Code = "VIEW_ROLES"
	ManageRoles Code = "MANAGE_ROLES"

	// Reports
	ViewReports   Code = "VIEW_REPORTS"
	ExportReports Code = "EXPORT_REPORTS"
)

// Permission describes a registered code.
type Permission struct {
	Code        Code   `json:"code"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// Category groups permissions for presentation only; it plays no part in
// evaluation.
type Category struct {
	Name        string       `json:"name"`
	Permissions []Permission `json:"permissions"`
}

type entry struct {
	code        Code
	description string
}

var layout = []struct {
	name    string
	entries []entry
}{
	{"Sales Operations", []entry{
		{CreateSale, "Create a sale at the register"},
		{ViewSales, "View sales history"},
		{VoidSale, "Void a completed sale"},
		{ApplyDiscount, "Apply a discount to a sale"},
		{ProcessRefund, "Refund a sale"},
	}},
	{"Inventory", []entry{
		{ViewProducts, "View the product catalogue"},
		{CreateProduct, "Add products"},
		{UpdateProduct, "Edit products"},
		{DeleteProduct, "Remove products"},
		{ViewStock, "View stock levels"},
		{AdjustStock, "Adjust stock counts"},
		{TransferStock, "Transfer stock between locations"},
	}},
	{"Pricing", []entry{
		{ViewPricing, "View price lists"},
		{UpdatePricing, "Change prices"},
	}},
	{"Customer Management", []entry{
		{ViewCustomers, "View customers"},
		{CreateCustomer, "Register customers"},
		{UpdateCustomer, "Edit customers"},
		{DeleteCustomer, "Remove customers"},
	}},
	{"Repair Management", []entry{
		{ViewRepairs, "View repair tickets"},
		{CreateRepair, "Open repair tickets"},
		{UpdateRepair, "Update repair progress"},
		{AssignRepair, "Assign repairs to technicians"},
		{CloseRepair, "Close repair tickets"},
	}},
	{"Warranty Management", []entry{
		{ViewWarranties, "View warranties"},
		{CreateWarranty, "Issue warranties"},
		{ProcessWarrantyClaim, "Process warranty claims"},
	}},
	{"Attendance", []entry{
		{ViewAttendance, "View attendance records"},
		{RecordAttendance, "Clock in and out"},
		{ManageAttendance, "Edit attendance records"},
	}},
	{"User Management", []entry{
		{ViewUsers, "View users"},
		{CreateUser, "Create users"},
		{UpdateUser, "Edit users and their role assignments"},
		{DeleteUser, "Delete users"},
	}},
	{"Role Management", []entry{
		{ViewRoles, "View roles and the permission matrix"},
		{ManageRoles, "Create, edit and delete roles"},
	}},
	{"Reports", []entry{
		{ViewReports, "View reports"},
		{ExportReports, "Export reports"},
	}},
}

var (
	categories []Category
	index      map[Code]Permission
	ordered    []Permission
)

func init() {
	index = make(map[Code]Permission)
	for _, group := range layout {
		cat := Category{Name: group.name, Permissions: make([]Permission, 0, len(group.entries))}
		for _, e := range group.entries {
			if _, dup := index[e.code]; dup {
				panic(fmt.Sprintf("permission: duplicate code %s", e.code))
			}
			p := Permission{Code: e.code, Description: e.description, Category: group.name}
			index[e.code] = p
			ordered = append(ordered, p)
			cat.Permissions = append(cat.Permissions, p)
		}
		categories = append(categories, cat)
	}
}

// Lookup returns the registered permission for code.
func Lookup(code Code) (Permission, bool) {
	p, ok := index[code]
	return p, ok
}

// Known reports whether code is part of the registry.
func Known(code Code) bool {
	_, ok := index[code]
	return ok
}

// All returns every registered permission in category order.
func All() []Permission {
	out := make([]Permission, len(ordered))
	copy(out, ordered)
	return out
}

// Categories returns the registry grouped by category, in display order.
func Categories() []Category {
	out := make([]Category, len(categories))
	for i, c := range categories {
		perms := make([]Permission, len(c.Permissions))
		copy(perms, c.Permissions)
		out[i] = Category{Name: c.Name, Permissions: perms}
	}
	return out
}

// Parse converts raw input into a registered Code. Surrounding whitespace
// is ignored; anything outside the registry is rejected.
func Parse(raw string) (Code, error) {
	code := Code(strings.TrimSpace(raw))
	if !Known(code) {
		return "", fmt.Errorf("%w: %q", ErrUnknownCode, raw)
	}
	return code, nil
}

// ParseAll parses every entry of raw, failing on the first unknown code.
// Duplicates are collapsed, first occurrence wins.
func ParseAll(raw []string) ([]Code, error) {
	seen := make(map[Code]struct{}, len(raw))
	out := make([]Code, 0, len(raw))
	for _, r := range raw {
		code, err := Parse(r)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	return out, nil
}
