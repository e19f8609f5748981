package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/wingx/dashboard/internal/logging"
	authmw "github.com/wingx/dashboard/internal/middleware/auth"
	"github.com/wingx/dashboard/internal/models"
	"github.com/wingx/dashboard/internal/notify"
	"github.com/wingx/dashboard/internal/shell"
)

type ShellHTTP struct{}

// Get renders the navigation shell for ?path=. Anonymous visitors get the
// redirect to the login page only.
func (h *ShellHTTP) Get(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "shell.get")

	path := c.QueryParam("path")
	if path == "" {
		path = shell.HomePath
	}

	id, ok := authmw.IdentityFrom(c)
	if !ok {
		return c.JSON(http.StatusOK, shell.Build(nil, path, notify.Status{}))
	}
	user := &shell.User{ID: id.UserID, Name: id.Name, Email: id.Email, Role: id.Role}

	var st notify.Status
	var prompt *notify.Prompt
	if w, ok := authmw.WorkspaceFrom(c); ok {
		engine := w.Engine()
		if models.CanViewPayments(id.Role) && shell.ClearsAlerts(path) {
			engine.Clear()
			l.Info("alerts_cleared")
		}
		st = engine.Status()
		if p, ok := engine.OfferPrompt(id.Role); ok {
			prompt = &p
		}
	}

	m := shell.Build(user, path, st)
	m.Prompt = prompt
	return c.JSON(http.StatusOK, m)
}
