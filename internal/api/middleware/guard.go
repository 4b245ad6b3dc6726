package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/storehub/admin-identity/internal/core/domain"
)

// RequireRole allows only callers whose role is in the given list. The list
// is flat: no role inherits another's privileges, so Administrator-only
// routes pass exactly domain.RoleAdministrator.
//
// Run after Auth — a request with no resolved account denies as
// unauthenticated, not forbidden.
func RequireRole(allowed ...domain.Role) echo.MiddlewareFunc {
	set := make(map[domain.Role]struct{}, len(allowed))
	for _, r := range allowed {
		set[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			account, ok := Account(c)
			if !ok {
				return domain.ErrUnauthenticated
			}
			if _, ok := set[account.Role]; !ok {
				return domain.ErrForbidden
			}
			return next(c)
		}
	}
}
