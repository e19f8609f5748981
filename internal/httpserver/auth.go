package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/wingx/dashboard/internal/assets"
	authsvc "github.com/wingx/dashboard/internal/auth"
	"github.com/wingx/dashboard/internal/logging"
	authmw "github.com/wingx/dashboard/internal/middleware/auth"
	"github.com/wingx/dashboard/internal/models"
	"github.com/wingx/dashboard/internal/session"
	"github.com/wingx/dashboard/internal/tokens"
	"github.com/wingx/dashboard/internal/transport"
	"github.com/wingx/dashboard/internal/validate"
)

type AuthHTTP struct {
	Svc       *authsvc.AuthService
	Sessions  *session.Manager
	Validator *validate.Validator
	ImageKit  *assets.Authenticator
}

func userResponse(u *models.User) transport.UserResponse {
	return transport.UserResponse{ID: u.ID.String(), Email: u.Email, Name: u.DisplayName, Role: u.Role}
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.register")

	var req transport.RegisterRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		l.Warn("register_error", "status", 400, "reason", "validation", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, h.Validator.Message(err))
	}

	res, err := h.Svc.Register(ctx, req.Email, req.Password, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, authsvc.ErrEmailInUse):
			return echo.NewHTTPError(http.StatusConflict, authsvc.Message(err))
		case errors.Is(err, authsvc.ErrWeakPassword):
			return echo.NewHTTPError(http.StatusBadRequest, authsvc.Message(err))
		}
		l.Error("register_error", "status", 500, "reason", "cannot register user", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, authsvc.Message(err))
	}

	authmw.SetSessionCookies(c, res)
	l.Info("register_success", "user_id", res.User.ID)
	return c.JSON(http.StatusCreated, echo.Map{"user": userResponse(res.User)})
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		l.Warn("login_error", "status", 400, "reason", "validation", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, h.Validator.Message(err))
	}

	res, err := h.Svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, authsvc.ErrUserNotFound) ||
			errors.Is(err, authsvc.ErrWrongPassword) ||
			errors.Is(err, authsvc.ErrInvalidCredentials) {
			return echo.NewHTTPError(http.StatusUnauthorized, authsvc.Message(err))
		}
		l.Error("login_error", "status", 500, "reason", "cannot sign in", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, authsvc.Message(err))
	}

	authmw.SetSessionCookies(c, res)
	l.Info("login_successful", "user_id", res.User.ID)
	return c.JSON(http.StatusOK, echo.Map{"user": userResponse(res.User)})
}

func (h *AuthHTTP) Google(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.google")

	var req transport.GoogleRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("google_login_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.ErrorCode != "" {
		err := authsvc.ClientError(req.ErrorCode)
		l.Warn("google_login_error", "status", 400, "reason", "popup failed", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, authsvc.GoogleMessage(err))
	}
	if req.IDToken == "" {
		l.Warn("google_login_error", "status", 400, "reason", "missing id_token")
		return echo.NewHTTPError(http.StatusBadRequest, authsvc.GoogleMessage(nil))
	}

	res, err := h.Svc.GoogleLogin(ctx, req.IDToken)
	if err != nil {
		switch {
		case errors.Is(err, authsvc.ErrGoogleDisabled):
			l.Warn("google_login_error", "status", 503, "reason", "google not configured")
			return echo.NewHTTPError(http.StatusServiceUnavailable, authsvc.GoogleMessage(err))
		case errors.Is(err, authsvc.ErrGoogleToken):
			return echo.NewHTTPError(http.StatusUnauthorized, authsvc.GoogleMessage(err))
		}
		l.Error("google_login_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, authsvc.GoogleMessage(err))
	}

	authmw.SetSessionCookies(c, res)
	l.Info("google_login_successful", "user_id", res.User.ID)
	return c.JSON(http.StatusOK, echo.Map{"user": userResponse(res.User)})
}

// LogOut revokes the refresh token and ends the session's workspace. It
// always clears the cookies.
func (h *AuthHTTP) LogOut(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.logout")

	refreshCookie, err := c.Cookie(tokens.RefreshCookie)
	if err == nil && refreshCookie.Value != "" {
		if sid, err := tokens.RefreshSessionID(refreshCookie.Value, h.Svc.RefreshSecret); err == nil {
			h.Sessions.End(sid)
		}
		if err := h.Svc.LogOut(ctx, refreshCookie.Value); err != nil {
			authmw.ClearSessionCookies(c)
			l.Error("logout_failed", "status", 500, "reason", "cannot revoke refresh token", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "cannot revoke refresh token")
		}
	}

	authmw.ClearSessionCookies(c)
	l.Info("logout_successful")
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

func (h *AuthHTTP) Me(c echo.Context) error {
	id, ok := authmw.IdentityFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not signed in")
	}
	return c.JSON(http.StatusOK, echo.Map{"user": id})
}

// ImageKit hands out a one-time upload signature for the client SDK.
func (h *AuthHTTP) ImageKit(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "auth.imagekit")

	if h.ImageKit == nil {
		l.Warn("imagekit_auth_failed", "status", 503, "reason", "not configured")
		return echo.NewHTTPError(http.StatusServiceUnavailable, "imagekit is not configured")
	}
	params, err := h.ImageKit.Params()
	if err != nil {
		if errors.Is(err, assets.ErrNotConfigured) {
			l.Warn("imagekit_auth_failed", "status", 503, "reason", "not configured")
			return echo.NewHTTPError(http.StatusServiceUnavailable, "imagekit is not configured")
		}
		l.Error("imagekit_auth_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot sign upload")
	}
	return c.JSON(http.StatusOK, params)
}
