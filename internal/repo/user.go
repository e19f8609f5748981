package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wingx/dashboard/internal/models"
	"github.com/wingx/dashboard/internal/tokens"
)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *GormRepo) CreateUserIfNotExists(ctx context.Context, u *models.User) error {
	u.Email = normalizeEmail(u.Email)
	tx := r.DB.WithContext(ctx).Where("email = ?", u.Email).FirstOrCreate(u)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrUserAlreadyExist
	}
	return nil
}

func (r *GormRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// LinkGoogle finds the account for a verified Google identity, attaching the
// subject to an existing email account or creating a plain user.
func (r *GormRepo) LinkGoogle(ctx context.Context, subject, email, name string) (*models.User, error) {
	var user models.User
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("google_subject = ?", subject).First(&user).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		err = tx.Where("email = ?", normalizeEmail(email)).First(&user).Error
		switch {
		case err == nil:
			user.GoogleSubject = subject
			if user.DisplayName == "" {
				user.DisplayName = name
			}
			return tx.Save(&user).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			user = models.User{
				Email:         normalizeEmail(email),
				DisplayName:   name,
				GoogleSubject: subject,
				Role:          models.RoleUser,
			}
			return tx.Create(&user).Error
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) AddRefresh(ctx context.Context, userID uuid.UUID, sessionID, refreshToken, jti string, exp time.Time) error {
	return r.DB.WithContext(ctx).Create(&models.RefreshToken{
		Token:     tokens.Sha256Hex(refreshToken),
		UserID:    userID,
		SessionID: sessionID,
		JTI:       jti,
		ExpiresAt: exp.Unix(),
	}).Error
}

func refreshExpiredOrRevoked(tx *gorm.DB, jti string) (bool, error) {
	var refresh models.RefreshToken
	if err := tx.Where("jti = ?", jti).First(&refresh).Error; err != nil {
		return false, err
	}
	return refresh.ExpiresAt < time.Now().Unix() || refresh.Revoked, nil
}

// RotateRefresh revokes oldJTI and stores the replacement in one transaction.
func (r *GormRepo) RotateRefresh(ctx context.Context, oldJTI string, next models.RefreshToken) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dead, err := refreshExpiredOrRevoked(tx, oldJTI)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRefreshInvalid
			}
			return err
		}
		if dead {
			return ErrRefreshInvalid
		}

		if err := tx.Model(&models.RefreshToken{}).Where("jti = ?", oldJTI).Update("revoked", true).Error; err != nil {
			return err
		}
		return tx.Create(&next).Error
	})
}

func (r *GormRepo) RevokeRefresh(ctx context.Context, refreshToken string) error {
	return r.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token = ?", tokens.Sha256Hex(refreshToken)).
		Update("revoked", true).Error
}
