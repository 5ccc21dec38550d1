package nav

import "go-pos-access/internal/permission"

// AdminNav is the console sidebar. Treat it as read-only.
var AdminNav = []Item{
	{Key: "dashboard", Label: "Dashboard", Path: "/admin"},
	{Key: "sales", Label: "Sales", Children: []Item{
		{Key: "sales.pos", Label: "Point of Sale", Path: "/admin/sales/new", Any: []permission.Code{permission.CreateSale}},
		{Key: "sales.history", Label: "Sales History", Path: "/admin/sales", Any: []permission.Code{permission.ViewSales}},
	}},
	{Key: "inventory", Label: "Inventory", Children: []Item{
		{Key: "inventory.products", Label: "Products", Path: "/admin/products", Any: []permission.Code{permission.ViewProducts}},
		{Key: "inventory.stock", Label: "Stock", Path: "/admin/stock", Any: []permission.Code{permission.ViewStock}},
		{Key: "inventory.pricing", Label: "Pricing", Path: "/admin/pricing", Any: []permission.Code{permission.ViewPricing}},
	}},
	{Key: "customers", Label: "Customers", Path: "/admin/customers", Any: []permission.Code{permission.ViewCustomers}},
	{Key: "service", Label: "Service", Children: []Item{
		{Key: "service.repairs", Label: "Repairs", Path: "/admin/repairs", Any: []permission.Code{permission.ViewRepairs}},
		{Key: "service.warranty", Label: "Warranty", Path: "/admin/warranty", Any: []permission.Code{permission.ViewWarranties}},
	}},
	{Key: "attendance", Label: "Attendance", Path: "/admin/attendance", Any: []permission.Code{permission.ViewAttendance, permission.RecordAttendance}},
	{Key: "reports", Label: "Reports", Path: "/admin/reports", Any: []permission.Code{permission.ViewReports}},
	{Key: "access", Label: "Access Control", Children: []Item{
		{Key: "access.users", Label: "Users", Path: "/admin/users", Any: []permission.Code{permission.ViewUsers}},
		{Key: "access.roles", Label: "Roles", Path: "/admin/roles", Any: []permission.Code{permission.ViewRoles, permission.ManageRoles}},
		{Key: "access.permissions", Label: "Permission Matrix", Path: "/admin/permissions", Any: []permission.Code{permission.ViewRoles, permission.ManageRoles}},
	}},
}
