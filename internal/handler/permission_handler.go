package handler

import (
	"go-pos-access/internal/permission"
	"go-pos-access/internal/service"

	"github.com/gofiber/fiber/v2"
)

type PermissionHandler struct {
	roleService service.RoleService
}

func NewPermissionHandler(roleService service.RoleService) *PermissionHandler {
	return &PermissionHandler{roleService: roleService}
}

// GetPermissions lists the permission registry grouped by category
// GET /api/v1/permissions
func (h *PermissionHandler) GetPermissions(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": fiber.Map{"categories": permission.Categories()}})
}

// GetMatrix returns every role against every permission
// GET /api/v1/permissions/matrix
func (h *PermissionHandler) GetMatrix(c *fiber.Ctx) error {
	matrix, err := h.roleService.Matrix(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"matrix": matrix}})
}
