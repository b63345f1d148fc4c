// File: internal/identity/repository.go
package identity

import (
	"context"
	"errors"
	"strings"

	"cafe_client/internal/common"

	"gorm.io/gorm"
)

// Repository defines the account storage of the stub identity provider.
type Repository interface {
	Create(ctx context.Context, account *Account) error
	FindByEmail(ctx context.Context, email string) (*Account, error)
	MarkEmailVerified(ctx context.Context, email string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM account repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create inserts a new account. A taken email yields common.ErrConflict.
func (r *gormRepository) Create(ctx context.Context, account *Account) error {
	account.Email = normalizeEmail(account.Email)
	err := r.db.WithContext(ctx).Create(account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) ||
			strings.Contains(err.Error(), "UNIQUE constraint failed") ||
			strings.Contains(err.Error(), "duplicate key value violates unique constraint") {
			return common.ErrConflict.WithDetails("Account with this email already exists.")
		}
		return err
	}
	return nil
}

// FindByEmail retrieves an account by its email address.
func (r *gormRepository) FindByEmail(ctx context.Context, email string) (*Account, error) {
	var account Account
	err := r.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Account not found with this email.")
		}
		return nil, err
	}
	return &account, nil
}

// MarkEmailVerified flags the account's email as verified.
func (r *gormRepository) MarkEmailVerified(ctx context.Context, email string) error {
	res := r.db.WithContext(ctx).Model(&Account{}).
		Where("email = ?", normalizeEmail(email)).
		Update("email_verified", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return common.ErrNotFound.WithDetails("Account not found with this email.")
	}
	return nil
}
