package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/translation-hub/hub-auth/internal/core/domain"
)

// RBAC enforces role-based access control on the role set by LoadSession.
// Other roles get domain.ErrForbidden, rendered as 403 by the error handler.
func RBAC(allowedRoles ...domain.Role) echo.MiddlewareFunc {
	allowed := make(map[domain.Role]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get("role").(domain.Role)
			if _, ok := allowed[role]; !ok {
				return domain.ErrForbidden
			}
			return next(c)
		}
	}
}
