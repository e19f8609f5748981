package repo

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotPending       = errors.New("order is not pending verification")
	ErrUserAlreadyExist = errors.New("user already exist")
	ErrRefreshInvalid   = errors.New("refresh token expired or revoked")
)

type GormRepo struct {
	DB *gorm.DB
}

func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
