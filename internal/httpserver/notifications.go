package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/wingx/dashboard/internal/logging"
	authmw "github.com/wingx/dashboard/internal/middleware/auth"
	"github.com/wingx/dashboard/internal/notify"
	"github.com/wingx/dashboard/internal/session"
	"github.com/wingx/dashboard/internal/transport"
)

type NotificationsHTTP struct{}

type notificationsResponse struct {
	Status notify.Status  `json:"status"`
	Prompt *notify.Prompt `json:"permission_prompt,omitempty"`
}

func workspace(c echo.Context) (*session.Workspace, error) {
	w, ok := authmw.WorkspaceFrom(c)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "no active session")
	}
	return w, nil
}

func (h *NotificationsHTTP) Get(c echo.Context) error {
	w, err := workspace(c)
	if err != nil {
		return err
	}
	resp := notificationsResponse{Status: w.Engine().Status()}
	if p, ok := w.Engine().OfferPrompt(w.Identity().Role); ok {
		resp.Prompt = &p
	}
	return c.JSON(http.StatusOK, resp)
}

// SetPermission records what the browser answered to Notification.permission.
func (h *NotificationsHTTP) SetPermission(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "notifications.permission")

	w, err := workspace(c)
	if err != nil {
		return err
	}
	var req transport.PermissionRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("permission_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	p, err := notify.ParsePermission(req.Permission)
	if err != nil {
		l.Warn("permission_error", "status", 400, "reason", "unknown permission", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "permission must be default, granted or denied")
	}

	w.Engine().SetPermission(p)
	l.Info("permission_set", "permission", p)
	resp := notificationsResponse{Status: w.Engine().Status()}
	if prompt, ok := w.Engine().OfferPrompt(w.Identity().Role); ok {
		resp.Prompt = &prompt
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *NotificationsHTTP) Clear(c echo.Context) error {
	w, err := workspace(c)
	if err != nil {
		return err
	}
	w.Engine().Clear()
	return c.JSON(http.StatusOK, notificationsResponse{Status: w.Engine().Status()})
}
