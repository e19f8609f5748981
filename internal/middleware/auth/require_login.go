package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	authsvc "github.com/wingx/dashboard/internal/auth"
	"github.com/wingx/dashboard/internal/logging"
	"github.com/wingx/dashboard/internal/repo"
	"github.com/wingx/dashboard/internal/session"
	"github.com/wingx/dashboard/internal/tokens"
)

type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*authsvc.LoginResult, error)
}

// SessionAuth authenticates requests from the session cookies, rotating an
// expired access token with the refresh cookie, and attaches the session's
// workspace.
type SessionAuth struct {
	JWTSecret     []byte
	RefreshSecret []byte
	Refresher     Refresher
	Sessions      *session.Manager
}

func (m *SessionAuth) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, err := m.authenticate(c)
		if err != nil {
			return err
		}
		if err := m.attach(c, claims); err != nil {
			clearAuthCookies(c)
			logging.FromContext(c.Request().Context()).Warn("auth_failed", "mw", "auth", "status", 401, "reason", "session ended")
			return echo.NewHTTPError(http.StatusUnauthorized, "session ended")
		}
		return next(c)
	}
}

// Optional authenticates when cookies are present and lets anonymous
// requests through.
func (m *SessionAuth) Optional(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := c.Cookie(tokens.AccessCookie); err != nil {
			if _, err := c.Cookie(tokens.RefreshCookie); err != nil {
				return next(c)
			}
		}
		if claims, err := m.authenticate(c); err == nil {
			if err := m.attach(c, claims); err != nil {
				clearAuthCookies(c)
			}
		}
		return next(c)
	}
}

func (m *SessionAuth) authenticate(c echo.Context) (*tokens.AccessClaims, error) {
	l := logging.FromContext(c.Request().Context()).With("mw", "auth")

	if accessCookie, err := c.Cookie(tokens.AccessCookie); err == nil && accessCookie.Value != "" {
		claims, err := tokens.AccessClaimsFromToken(accessCookie.Value, m.JWTSecret)
		if err == nil {
			return claims, nil
		}
		if !errors.Is(err, jwt.ErrTokenExpired) {
			clearAuthCookies(c)
			l.Warn("auth_failed", "status", 401, "reason", "invalid access token", "error", err)
			return nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
		}
	}

	refreshCookie, err := c.Cookie(tokens.RefreshCookie)
	if err != nil || refreshCookie.Value == "" {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
	}

	res, err := m.Refresher.Refresh(c.Request().Context(), refreshCookie.Value)
	if err != nil {
		clearAuthCookies(c)
		m.endRejected(refreshCookie.Value, err)
		l.Warn("auth_failed", "status", 401, "reason", "refresh failed", "error", err)
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "session expired")
	}
	SetSessionCookies(c, res)

	claims, err := tokens.AccessClaimsFromToken(res.AccessToken, m.JWTSecret)
	if err != nil {
		clearAuthCookies(c)
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "new access token invalid")
	}
	l.Info("access_token_rotated", "user_id", claims.Subject)
	return claims, nil
}

// endRejected ends the session of a refresh token the store turned down.
func (m *SessionAuth) endRejected(refreshToken string, err error) {
	if m.Sessions == nil || len(m.RefreshSecret) == 0 {
		return
	}
	if !errors.Is(err, repo.ErrRefreshInvalid) && !errors.Is(err, authsvc.ErrUserNotFound) {
		return
	}
	if sid, err := tokens.RefreshSessionID(refreshToken, m.RefreshSecret); err == nil {
		m.Sessions.End(sid)
	}
}

func (m *SessionAuth) attach(c echo.Context, claims *tokens.AccessClaims) error {
	id := session.Identity{
		UserID:    claims.Subject,
		SessionID: claims.SessionID,
		Email:     claims.Email,
		Name:      claims.Name,
		Role:      claims.Role,
	}
	if m.Sessions != nil && id.SessionID != "" {
		w, err := m.Sessions.Attach(id)
		if err != nil {
			return err
		}
		c.Set(ctxWorkspace, w)
	}
	c.Set(ctxUserID, id.UserID)
	c.Set(ctxRole, id.Role)
	c.Set(ctxIdentity, id)
	return nil
}
