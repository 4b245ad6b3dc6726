package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/storehub/admin-identity/internal/core/domain"
	"github.com/storehub/admin-identity/internal/core/ports"
)

// AccountContextKey is where the resolved account is stored on the request
// context.
const AccountContextKey = "account"

// Auth is the authenticated-only guard: it resolves the bearer token into an
// account and injects it into the context. Every failure mode — missing
// header, malformed token, expired session, account no longer present —
// denies as domain.ErrUnauthenticated.
func Auth(resolver ports.SessionResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return domain.ErrUnauthenticated
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return domain.ErrUnauthenticated
			}

			account, err := resolver.Resolve(c.Request().Context(), parts[1])
			if err != nil {
				return err
			}

			c.Set(AccountContextKey, account)
			return next(c)
		}
	}
}

// Account extracts the account injected by Auth. The second return is false
// when Auth did not run on this route.
func Account(c echo.Context) (*domain.Account, bool) {
	account, ok := c.Get(AccountContextKey).(*domain.Account)
	return account, ok
}
