package auth

import (
	"github.com/labstack/echo/v4"

	authsvc "github.com/wingx/dashboard/internal/auth"
	"github.com/wingx/dashboard/internal/session"
	"github.com/wingx/dashboard/internal/tokens"
)

const (
	ctxUserID    = "user_id"
	ctxRole      = "role"
	ctxIdentity  = "identity"
	ctxWorkspace = "workspace"
)

func SetSessionCookies(c echo.Context, res *authsvc.LoginResult) {
	c.SetCookie(tokens.CreateCookie(tokens.AccessCookie, res.AccessToken, "/", res.AccessExp))
	c.SetCookie(tokens.CreateCookie(tokens.RefreshCookie, res.RefreshToken, "/", res.RefreshExp))
}

func clearAuthCookies(c echo.Context) {
	c.SetCookie(tokens.DeleteCookie(tokens.AccessCookie, "/"))
	c.SetCookie(tokens.DeleteCookie(tokens.RefreshCookie, "/"))
}

// ClearSessionCookies is used on logout.
func ClearSessionCookies(c echo.Context) { clearAuthCookies(c) }

func IdentityFrom(c echo.Context) (session.Identity, bool) {
	id, ok := c.Get(ctxIdentity).(session.Identity)
	return id, ok
}

func WorkspaceFrom(c echo.Context) (*session.Workspace, bool) {
	w, ok := c.Get(ctxWorkspace).(*session.Workspace)
	return w, ok && w != nil
}
