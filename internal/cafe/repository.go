// File: internal/cafe/repository.go
package cafe

import (
	"context"
	"errors"
	"strings"

	"cafe_client/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines the interface for café data operations.
type Repository interface {
	Create(ctx context.Context, cafe *Cafe) error
	FindByManager(ctx context.Context, managerID uuid.UUID) (*Cafe, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM café repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, cafe *Cafe) error {
	if err := r.db.WithContext(ctx).Create(cafe).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) ||
			strings.Contains(err.Error(), "UNIQUE constraint failed") ||
			strings.Contains(err.Error(), "duplicate key value violates unique constraint") {
			return common.ErrConflict.WithDetails("Manager already has a café or the name is taken.")
		}
		return err
	}
	return nil
}

func (r *gormRepository) FindByManager(ctx context.Context, managerID uuid.UUID) (*Cafe, error) {
	var cafe Cafe
	err := r.db.WithContext(ctx).Where("manager_id = ?", managerID).First(&cafe).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithMessage("Manager has no café yet.")
		}
		return nil, err
	}
	return &cafe, nil
}

func (r *gormRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&Cafe{}).Where("slug = ?", slug).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
