package service

import (
	"context"
	"fmt"
	"log"

	"studenthub/internal/model"
	"studenthub/internal/repository"
)

// AdminService handles the admin dashboard operations on user accounts.
// Course management is on CourseService; handlers gate both behind the
// is_admin claim.
type AdminService struct {
	userRepo         repository.UserRepository
	refreshTokenRepo repository.RefreshTokenRepository
}

func NewAdminService(userRepo repository.UserRepository, refreshTokenRepo repository.RefreshTokenRepository) *AdminService {
	return &AdminService{
		userRepo:         userRepo,
		refreshTokenRepo: refreshTokenRepo,
	}
}

// ListUsers returns the paginated account listing for the dashboard.
func (s *AdminService) ListUsers(ctx context.Context, cursor *string, limit int) ([]model.User, *string, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return s.userRepo.List(ctx, cursor, limit)
}

// UpdateUser toggles the admin role or active flag on an account.
// Deactivation revokes every refresh token so the account cannot rotate its
// way back in; the access token dies on its own within minutes.
func (s *AdminService) UpdateUser(ctx context.Context, userID int64, req *model.AdminUpdateUserRequest) (*model.User, error) {
	user, err := s.userRepo.AdminUpdate(ctx, userID, req.IsAdmin, req.IsActive)
	if err != nil {
		return nil, err
	}

	if req.IsActive != nil && !*req.IsActive {
		if err := s.refreshTokenRepo.RevokeAllForUser(ctx, userID); err != nil {
			return nil, fmt.Errorf("revoke tokens for deactivated user: %w", err)
		}
		log.Printf("[AdminService] User %d deactivated, refresh tokens revoked", userID)
	}

	return user, nil
}
