package handler

import (
	"go-pos-access/internal/model"
	"go-pos-access/internal/service"

	"github.com/gofiber/fiber/v2"
)

type RoleHandler struct {
	roleService service.RoleService
}

func NewRoleHandler(roleService service.RoleService) *RoleHandler {
	return &RoleHandler{roleService: roleService}
}

// GetRoles returns all roles
// GET /api/v1/roles
func (h *RoleHandler) GetRoles(c *fiber.Ctx) error {
	roles, err := h.roleService.List(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	out := make([]model.RoleResponse, len(roles))
	for i := range roles {
		out[i] = roles[i].ToResponse()
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"roles": out}})
}

// GetRole returns a single role
// GET /api/v1/roles/:id
func (h *RoleHandler) GetRole(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return badRequest(c, "Invalid role ID")
	}
	role, err := h.roleService.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"role": role.ToResponse()}})
}

// CreateRole handles role creation
// POST /api/v1/roles
func (h *RoleHandler) CreateRole(c *fiber.Ctx) error {
	var req service.CreateRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}

	role, err := h.roleService.Create(c.UserContext(), &req, actorID(c))
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Role created successfully",
		"data":    fiber.Map{"role": role.ToResponse()},
	})
}

// UpdateRole applies a partial update
// PUT /api/v1/roles/:id
func (h *RoleHandler) UpdateRole(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return badRequest(c, "Invalid role ID")
	}

	var req service.UpdateRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}

	role, err := h.roleService.Update(c.UserContext(), id, &req, actorID(c))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Role updated successfully",
		"data":    fiber.Map{"role": role.ToResponse()},
	})
}

// DeleteRole handles role deletion
// DELETE /api/v1/roles/:id
func (h *RoleHandler) DeleteRole(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return badRequest(c, "Invalid role ID")
	}

	if err := h.roleService.Delete(c.UserContext(), id, actorID(c)); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Role deleted successfully"})
}
