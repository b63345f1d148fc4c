// File: internal/cafe/service.go
package cafe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cafe_client/internal/common"
	"cafe_client/internal/shared"
	"cafe_client/internal/user"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

const maxSlugAttempts = 5

// MemberFinder looks up the caller's member record.
type MemberFinder interface {
	FindBySubject(ctx context.Context, subject uuid.UUID) (*user.Member, error)
}

// Service defines the café operations a manager can perform.
type Service interface {
	GetManagerCafe(ctx context.Context, subject uuid.UUID) (*Cafe, error)
	CreateManagerCafe(ctx context.Context, subject uuid.UUID, req CreateCafeRequest) (*Cafe, error)
}

type service struct {
	repo    Repository
	members MemberFinder
	logger  *zap.Logger
}

// NewService creates a new café service.
func NewService(repo Repository, members MemberFinder, logger *zap.Logger) Service {
	return &service{
		repo:    repo,
		members: members,
		logger:  logger.Named("CafeService"),
	}
}

func (s *service) manager(ctx context.Context, subject uuid.UUID) (*user.Member, error) {
	member, err := s.members.FindBySubject(ctx, subject)
	if err != nil {
		return nil, err
	}
	if member.Role != shared.RoleManager {
		return nil, common.ErrForbidden.WithMessage("Only managers have a café.")
	}
	return member, nil
}

func (s *service) GetManagerCafe(ctx context.Context, subject uuid.UUID) (*Cafe, error) {
	member, err := s.manager(ctx, subject)
	if err != nil {
		return nil, err
	}
	return s.repo.FindByManager(ctx, member.ID)
}

func (s *service) CreateManagerCafe(ctx context.Context, subject uuid.UUID, req CreateCafeRequest) (*Cafe, error) {
	member, err := s.manager(ctx, subject)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.FindByManager(ctx, member.ID); err == nil {
		return nil, common.ErrConflict.WithMessage("Manager already has a café.")
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	cafeSlug, err := s.uniqueSlug(ctx, name)
	if err != nil {
		return nil, err
	}

	cafe := &Cafe{
		ManagerID: member.ID,
		Name:      name,
		Slug:      cafeSlug,
		Address:   strings.TrimSpace(req.Address),
	}
	if err := s.repo.Create(ctx, cafe); err != nil {
		s.logger.Error("Failed to create café", zap.Error(err), zap.String("managerID", member.ID.String()))
		return nil, err
	}
	s.logger.Info("Café registered", zap.String("cafeID", cafe.ID.String()), zap.String("slug", cafe.Slug))
	return cafe, nil
}

// uniqueSlug derives a slug from name, suffixing -2, -3... on collision.
func (s *service) uniqueSlug(ctx context.Context, name string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		return "", common.ErrBadRequest.WithDetails("Café name must contain letters or digits.")
	}
	candidate := base
	for i := 2; i <= maxSlugAttempts+1; i++ {
		taken, err := s.repo.SlugExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return "", common.ErrConflict.WithMessage("A café with this name already exists.")
}
