package handler

import (
	"errors"
	"log"

	"go-pos-access/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const retryMessage = "Action failed, please retry"

// respondError maps service errors to status codes. Anything it does not
// recognise is logged and answered with a generic 500 so internal details
// never reach the client.
func respondError(c *fiber.Ctx, err error) error {
	var (
		verr  *service.ValidationError
		perr  *service.ProtectedRoleError
		inUse *service.RoleInUseError
		nf    *service.NotFoundError
		gerr  *service.RoleGrantError
		uerr  *service.UserAccessError
	)
	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Validation failed", "fields": verr.Fields})
	case errors.As(err, &perr):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": perr.Error()})
	case errors.As(err, &inUse):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": inUse.Error()})
	case errors.As(err, &gerr):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": gerr.Error()})
	case errors.As(err, &uerr):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": uerr.Error()})
	case errors.As(err, &nf):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": nf.Error()})
	}
	log.Printf("%s %s: %v", c.Method(), c.Path(), err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": retryMessage})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": message})
}

// paramID parses the :id route parameter.
func paramID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params("id"))
	return id, err == nil
}

// actorID is the id of the authenticated caller, for audit columns.
func actorID(c *fiber.Ctx) string {
	if id, ok := c.Locals("user_id").(string); ok {
		return id
	}
	return "system"
}
