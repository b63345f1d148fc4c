// File: internal/user/repository.go
package user

import (
	"context"
	"errors"
	"strings"

	"cafe_client/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines the interface for member data operations.
type Repository interface {
	Create(ctx context.Context, member *Member) error
	FindBySubject(ctx context.Context, subject uuid.UUID) (*Member, error)
	Update(ctx context.Context, member *Member) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM member repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key value violates unique constraint")
}

// Create inserts a new member record.
func (r *gormRepository) Create(ctx context.Context, member *Member) error {
	member.Email = strings.ToLower(strings.TrimSpace(member.Email))
	if err := r.db.WithContext(ctx).Create(member).Error; err != nil {
		if isUniqueViolation(err) {
			return common.ErrConflict.WithDetails("Member for this account already exists.")
		}
		return err
	}
	return nil
}

// FindBySubject retrieves a member by identity provider subject.
func (r *gormRepository) FindBySubject(ctx context.Context, subject uuid.UUID) (*Member, error) {
	var member Member
	err := r.db.WithContext(ctx).Where("subject = ?", subject).First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("User not found.")
		}
		return nil, err
	}
	return &member, nil
}

// Update saves every field of an existing member.
func (r *gormRepository) Update(ctx context.Context, member *Member) error {
	member.Email = strings.ToLower(strings.TrimSpace(member.Email))
	return r.db.WithContext(ctx).Save(member).Error
}
