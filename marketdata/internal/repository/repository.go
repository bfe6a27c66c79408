package repository

import (
	"context"
	"errors"

	"github.com/quoteline-systems/quoteline-stack/marketdata/internal/models"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
)

// Repository is the identity store. Lookups are case-sensitive exact
// matches on username.
type Repository interface {
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}
