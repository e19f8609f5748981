package auth

import (
	"net/http"
	"slices"

	"github.com/labstack/echo/v4"
)

// RequireRole lets through only the listed roles. It must run after
// RequireAuth.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get(ctxRole).(string)
			if !slices.Contains(roles, role) {
				return echo.NewHTTPError(http.StatusForbidden, "not enough rights")
			}
			return next(c)
		}
	}
}
