package service

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"studenthub/internal/model"
	"studenthub/internal/repository"
)

// UserService handles business logic for student accounts.
type UserService struct {
	repo repository.UserRepository
}

func NewUserService(repo repository.UserRepository) *UserService {
	return &UserService{repo: repo}
}

// Register creates a new student account with optional avatar metadata.
func (s *UserService) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	if strings.TrimSpace(req.Username) == "" {
		return nil, fmt.Errorf("username is required")
	}

	if strings.TrimSpace(req.Email) == "" || !strings.Contains(req.Email, "@") {
		return nil, fmt.Errorf("a valid email is required")
	}

	if strings.TrimSpace(req.Password) == "" {
		return nil, fmt.Errorf("password is required")
	}

	if (req.AvatarURL == nil) != (req.AvatarKey == nil) {
		return nil, fmt.Errorf("avatar_url and avatar_key must both be provided or both omitted")
	}

	// Check if username already exists
	exists, err := s.repo.ExistsByUsername(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if exists {
		return nil, model.ErrUsernameExists
	}

	exists, err = s.repo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, model.ErrEmailExists
	}

	// Hash the password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Username:       req.Username,
		Email:          req.Email,
		PasswordHashed: string(hashedPassword),
		IsActive:       true,
		AvatarURL:      req.AvatarURL,
		AvatarKey:      req.AvatarKey,
	}

	if req.DisplayName != "" {
		user.DisplayName = &req.DisplayName
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Login authenticates a user with username and password.
func (s *UserService) Login(ctx context.Context, req *model.LoginRequest) (*model.User, error) {
	user, err := s.repo.GetByUsername(ctx, req.Username)
	if err != nil {
		// Don't reveal whether username exists or not
		return nil, model.ErrInvalidCredentials
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHashed), []byte(req.Password))
	if err != nil {
		return nil, model.ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, model.ErrUserDeactivated
	}

	return user, nil
}

// GetByID retrieves a user by ID.
func (s *UserService) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return s.repo.GetByID(ctx, id)
}

// IsAdmin reports whether a user currently holds the admin role. Used at
// refresh-token rotation so role changes take effect without a logout.
func (s *UserService) IsAdmin(ctx context.Context, id int64) (bool, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	return user.IsAdmin, nil
}

// GetProfile retrieves a student's public profile.
func (s *UserService) GetProfile(ctx context.Context, userID int64) (*model.ProfileResponse, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &model.ProfileResponse{User: user}, nil
}

// UpdateProfile applies a partial profile update for the current user.
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, req *model.UpdateProfileRequest) (*model.User, error) {
	return s.repo.UpdateProfile(ctx, userID, req)
}

// Directory lists students alphabetically, optionally filtered by a
// username prefix.
func (s *UserService) Directory(ctx context.Context, query string, cursor *string, limit int) (*model.DirectoryResponse, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	students, nextCursor, err := s.repo.Directory(ctx, strings.TrimSpace(query), cursor, limit)
	if err != nil {
		return nil, fmt.Errorf("list directory: %w", err)
	}

	return &model.DirectoryResponse{
		Students:   students,
		NextCursor: nextCursor,
		HasMore:    nextCursor != nil,
	}, nil
}
