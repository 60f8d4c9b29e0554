package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/service-desk/pkg/util/errorutil"
)

// Role names a permission level carried in tokens.
type Role string

// RoleOperator is the desk operator: full access to tickets and backups.
const RoleOperator Role = "operator"

// RequireOperator ensures the caller authenticated as the desk operator.
func RequireOperator() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if principal.Role != RoleOperator {
			return apperrors.NewUnauthorized("operator role required")
		}
		return c.Next()
	}
}
