// Package auth signs operators in with email/password or Google and issues
// the session cookies.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wingx/dashboard/internal/hash"
	"github.com/wingx/dashboard/internal/logging"
	"github.com/wingx/dashboard/internal/models"
	"github.com/wingx/dashboard/internal/repo"
	"github.com/wingx/dashboard/internal/tokens"
)

const (
	minPasswordLen  = 6
	userEventsTopic = "user_events"
)

type Publisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
}

type AuthService struct {
	Repo          *repo.GormRepo
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Google        *GoogleVerifier
	Events        Publisher
}

type LoginResult struct {
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
	SessionID    string
	User         *models.User
}

func (s *AuthService) accessTTL() time.Duration {
	if s.AccessTTL > 0 {
		return s.AccessTTL
	}
	return 15 * time.Minute
}

func (s *AuthService) refreshTTL() time.Duration {
	if s.RefreshTTL > 0 {
		return s.RefreshTTL
	}
	return 7 * 24 * time.Hour
}

func (s *AuthService) Register(ctx context.Context, email, password, name string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	if len(password) < minPasswordLen {
		l.Warn("register_error", "status", 422, "reason", "weak password")
		return nil, ErrWeakPassword
	}

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, err
	}
	user := &models.User{
		Email:        email,
		DisplayName:  strings.TrimSpace(name),
		PasswordHash: pwHash,
		Role:         models.RoleUser,
	}
	if err := s.Repo.CreateUserIfNotExists(ctx, user); err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) {
			l.Warn("register_error", "status", 409, "reason", "email already registered")
			return nil, ErrEmailInUse
		}
		l.Error("register_error", "status", 500, "error", err)
		return nil, err
	}

	s.publish(ctx, "user_registered", user)
	return s.issue(ctx, user)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	user, err := s.Repo.GetUserByEmail(ctx, email)
	if err != nil {
		if repo.IsNotFound(err) {
			l.Warn("login_failed", "status", 401, "reason", "user not found")
			return nil, ErrUserNotFound
		}
		l.Error("login_failed", "status", 500, "error", err)
		return nil, err
	}
	if user.PasswordHash == "" {
		l.Warn("login_failed", "status", 401, "reason", "account has no password")
		return nil, ErrInvalidCredentials
	}
	if !hash.CheckPassword(user.PasswordHash, password) {
		l.Warn("login_failed", "status", 401, "reason", "wrong password")
		return nil, ErrWrongPassword
	}

	s.publish(ctx, "user_logged_in", user)
	return s.issue(ctx, user)
}

// GoogleLogin signs in with a Google ID token, creating the account on first
// use.
func (s *AuthService) GoogleLogin(ctx context.Context, idToken string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.google")

	if s.Google == nil {
		return nil, ErrGoogleDisabled
	}
	gid, err := s.Google.Verify(ctx, idToken)
	if err != nil {
		l.Warn("google_login_failed", "status", 401, "error", err)
		return nil, err
	}

	user, err := s.Repo.LinkGoogle(ctx, gid.Subject, gid.Email, gid.Name)
	if err != nil {
		l.Error("google_login_failed", "status", 500, "error", err)
		return nil, err
	}

	s.publish(ctx, "user_logged_in", user)
	return s.issue(ctx, user)
}

// Refresh rotates the refresh token. The session id and the user's current
// role carry over into the new access token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	claims, err := tokens.RefreshClaimsFromToken(refreshToken, s.RefreshSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", repo.ErrRefreshInvalid, err)
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: bad subject", repo.ErrRefreshInvalid)
	}
	user, err := s.Repo.GetUserByID(ctx, userID)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	res, next, err := s.sign(user, claims.SessionID)
	if err != nil {
		l.Error("refresh_failed", "status", 500, "error", err)
		return nil, err
	}
	if err := s.Repo.RotateRefresh(ctx, claims.ID, next); err != nil {
		l.Warn("refresh_failed", "status", 401, "error", err)
		return nil, err
	}
	return res, nil
}

func (s *AuthService) LogOut(ctx context.Context, refreshToken string) error {
	return s.Repo.RevokeRefresh(ctx, refreshToken)
}

// issue starts a new session for user.
func (s *AuthService) issue(ctx context.Context, user *models.User) (*LoginResult, error) {
	res, refresh, err := s.sign(user, uuid.NewString())
	if err != nil {
		return nil, err
	}
	if err := s.Repo.AddRefresh(ctx, user.ID, res.SessionID, res.RefreshToken, refresh.JTI, res.RefreshExp); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *AuthService) sign(user *models.User, sessionID string) (*LoginResult, models.RefreshToken, error) {
	now := time.Now()
	accessExp := now.Add(s.accessTTL())
	refreshExp := now.Add(s.refreshTTL())

	claims := tokens.AccessClaims{
		Role:      user.Role,
		Name:      user.DisplayName,
		Email:     user.Email,
		SessionID: sessionID,
	}
	claims.Subject = user.ID.String()
	access, err := tokens.SignAccess(claims, accessExp, s.AccessSecret)
	if err != nil {
		return nil, models.RefreshToken{}, err
	}

	refresh, jti, err := tokens.SignRefresh(user.ID.String(), sessionID, refreshExp, s.RefreshSecret)
	if err != nil {
		return nil, models.RefreshToken{}, err
	}

	res := &LoginResult{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
		SessionID:    sessionID,
		User:         user,
	}
	stored := models.RefreshToken{
		Token:     tokens.Sha256Hex(refresh),
		UserID:    user.ID,
		SessionID: sessionID,
		JTI:       jti,
		ExpiresAt: refreshExp.Unix(),
	}
	return res, stored, nil
}

func (s *AuthService) publish(ctx context.Context, typ string, user *models.User) {
	if s.Events == nil {
		return
	}
	event := map[string]any{
		"type":    typ,
		"user_id": user.ID.String(),
		"email":   user.Email,
		"role":    user.Role,
	}
	if err := s.Events.PublishEvent(ctx, userEventsTopic, user.ID.String(), event); err != nil {
		logging.FromContext(ctx).Warn("kafka_publish_failed", "type", typ, "error", err)
	}
}
