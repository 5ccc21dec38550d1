package middleware

import (
	"context"
	"errors"
	"strings"

	"go-pos-access/internal/model"
	"go-pos-access/internal/permission"
	"go-pos-access/internal/service"
	"go-pos-access/pkg/jwt"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// Authenticator resolves a bearer token to the current user record.
type Authenticator interface {
	Authenticate(ctx context.Context, tokenString string) (*model.User, error)
}

const userKey = "user"

// RequireAuth is middleware that validates the JWT and loads the user, with
// current roles, into the context. Nothing is taken from the token claims
// beyond the user id and session version.
func RequireAuth(auth Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, msg := bearerToken(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": msg})
		}

		user, err := auth.Authenticate(c.UserContext(), token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": unauthorizedMessage(err)})
		}

		// Set user info in context for downstream handlers
		c.Locals(userKey, user)
		c.Locals("user_id", user.ID.String())
		c.Locals("user_email", user.Email)
		c.Locals("user_name", user.FullName)

		return c.Next()
	}
}

// bearerToken reads "Bearer <token>" from the Authorization header. Browsers
// cannot set headers on a websocket handshake, so an upgrade request may pass
// the token as the access_token query parameter instead.
func bearerToken(c *fiber.Ctx) (string, string) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		if websocket.IsWebSocketUpgrade(c) {
			if token := c.Query("access_token"); token != "" {
				return token, ""
			}
		}
		return "", "Missing authorization token"
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return "", "Invalid authorization format. Use: Bearer <token>"
	}
	return parts[1], ""
}

// unauthorizedMessage tells the client why its session ended and hides
// every other failure behind a generic message.
func unauthorizedMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrSessionReplaced), errors.Is(err, service.ErrSessionTimeout), errors.Is(err, service.ErrUserInactive):
		return err.Error()
	case errors.Is(err, jwt.ErrMissingToken):
		return "Missing authorization token"
	}
	return "Invalid or expired token"
}

// CurrentUser returns the user loaded by RequireAuth, or nil.
func CurrentUser(c *fiber.Ctx) *model.User {
	user, _ := c.Locals(userKey).(*model.User)
	return user
}

// RequirePermission lets the request through when the user's roles allow
// code.
func RequirePermission(code permission.Code) fiber.Handler {
	return RequireAnyPermission(code)
}

// RequireAnyPermission lets the request through when the user's roles allow
// at least one of codes. It fails closed: no user, no roles or no codes all
// deny. The decision is made per request against the roles RequireAuth just
// loaded, so role edits take effect immediately.
func RequireAnyPermission(codes ...permission.Code) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil || !user.Can(codes...) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": "Forbidden"})
		}
		return c.Next()
	}
}
