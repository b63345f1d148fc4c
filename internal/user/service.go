package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cafe_client/internal/common"
	"cafe_client/internal/shared"

	"go.uber.org/zap"
)

// Service is the member side of the development backend.
type Service interface {
	GetRole(ctx context.Context, id Identity) (*Member, error)
	Sync(ctx context.Context, id Identity, role shared.Role, req SyncRequest) (*Member, error)
}

// ServiceImplementation implements Service on a Repository.
type ServiceImplementation struct {
	repo   Repository
	logger *zap.Logger
}

var _ Service = (*ServiceImplementation)(nil)

// NewService creates a new member service.
func NewService(repo Repository, logger *zap.Logger) *ServiceImplementation {
	return &ServiceImplementation{
		repo:   repo,
		logger: logger.Named("MemberService"),
	}
}

// GetRole returns the member for the caller. The stored verification flag is
// refreshed from the token, which is the fresher source.
func (s *ServiceImplementation) GetRole(ctx context.Context, id Identity) (*Member, error) {
	member, err := s.repo.FindBySubject(ctx, id.Subject)
	if err != nil {
		return nil, err
	}
	if id.EmailVerified && !member.EmailVerified {
		member.EmailVerified = true
		if err := s.repo.Update(ctx, member); err != nil {
			s.logger.Warn("Failed to persist email verification", zap.Error(err), zap.String("subject", id.Subject.String()))
		}
	}
	return member, nil
}

// Sync creates the member on first call and refreshes its profile on later
// ones. A second sync under a different role is a conflict.
func (s *ServiceImplementation) Sync(ctx context.Context, id Identity, role shared.Role, req SyncRequest) (*Member, error) {
	if !role.Valid() {
		return nil, common.ErrBadRequest.WithDetails(fmt.Sprintf("Unknown role %q.", role))
	}
	if !id.EmailVerified {
		return nil, common.ErrForbidden.WithDetails("Email address is not verified.")
	}
	if req.Email != "" && !strings.EqualFold(strings.TrimSpace(req.Email), id.Email) {
		s.logger.Warn("Sync body email differs from token email; using token email",
			zap.String("subject", id.Subject.String()),
		)
	}

	member, err := s.repo.FindBySubject(ctx, id.Subject)
	switch {
	case errors.Is(err, common.ErrNotFound):
		member = &Member{
			Subject:        id.Subject,
			Email:          id.Email,
			FirstName:      strings.TrimSpace(req.FirstName),
			LastName:       strings.TrimSpace(req.LastName),
			ProfilePicture: req.ProfilePicture,
			Role:           role,
			EmailVerified:  true,
		}
		if err := s.repo.Create(ctx, member); err != nil {
			s.logger.Error("Failed to create member", zap.Error(err), zap.String("subject", id.Subject.String()))
			return nil, err
		}
		s.logger.Info("Member created", zap.String("subject", id.Subject.String()), zap.String("role", string(role)))
		return member, nil
	case err != nil:
		return nil, err
	}

	if member.Role != role {
		return nil, common.ErrConflict.WithMessage(fmt.Sprintf("Account is already registered as %s.", member.Role))
	}
	member.Email = id.Email
	member.EmailVerified = true
	if v := strings.TrimSpace(req.FirstName); v != "" {
		member.FirstName = v
	}
	if v := strings.TrimSpace(req.LastName); v != "" {
		member.LastName = v
	}
	if req.ProfilePicture != "" {
		member.ProfilePicture = req.ProfilePicture
	}
	if err := s.repo.Update(ctx, member); err != nil {
		s.logger.Error("Failed to update member", zap.Error(err), zap.String("subject", id.Subject.String()))
		return nil, err
	}
	return member, nil
}
