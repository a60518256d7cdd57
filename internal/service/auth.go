package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"studenthub/internal/config"
	"studenthub/internal/model"
	"studenthub/internal/repository"
)

// AuthService handles authentication-related business logic with refresh token rotation and reuse detection.
type AuthService struct {
	refreshTokenRepo repository.RefreshTokenRepository
	config           *config.Config
}

func NewAuthService(refreshTokenRepo repository.RefreshTokenRepository, cfg *config.Config) *AuthService {
	return &AuthService{
		refreshTokenRepo: refreshTokenRepo,
		config:           cfg,
	}
}

// GenerateTokenPair issues a new access token and persists a refresh token.
// The is_admin claim rides in the access token so middleware can gate the
// admin surface without a DB lookup.
func (s *AuthService) GenerateTokenPair(ctx context.Context, userID int64, isAdmin bool, deviceInfo, ipAddress string) (*model.TokenPair, error) {
	accessToken, err := s.generateAccessToken(userID, isAdmin)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshTokenRaw := uuid.New().String()
	refreshTokenHash := s.hashToken(refreshTokenRaw)

	refreshToken := &model.RefreshToken{
		UserID:    userID,
		TokenHash: refreshTokenHash,
		ExpiresAt: time.Now().Add(time.Duration(s.config.RefreshTokenMaxAge) * time.Second),
	}

	if deviceInfo != "" {
		refreshToken.DeviceInfo = &deviceInfo
	}
	if ipAddress != "" {
		refreshToken.IPAddress = &ipAddress
	}

	if err := s.refreshTokenRepo.Create(ctx, refreshToken); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &model.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshTokenRaw,
		ExpiresIn:    s.config.AccessTokenMaxAge,
	}, nil
}

// RefreshTokens validates the refresh token and rotates a new pair.
func (s *AuthService) RefreshTokens(ctx context.Context, refreshTokenRaw, deviceInfo, ipAddress string, isAdmin func(ctx context.Context, userID int64) (bool, error)) (*model.TokenPair, int64, error) {
	tokenHash := s.hashToken(refreshTokenRaw)

	token, err := s.refreshTokenRepo.FindByTokenHash(ctx, tokenHash)
	if err != nil {
		return nil, 0, model.ErrRefreshTokenNotFound
	}

	if token.IsRevoked() {
		// Reuse of a rotated token means the family may be stolen
		if err := s.revokeTokenFamily(ctx, token); err != nil {
			log.Printf("[AuthService] revokeTokenFamily FAILED: user=%d err=%v", token.UserID, err)
		}
		return nil, 0, model.ErrRefreshTokenReused
	}

	if token.IsExpired() {
		return nil, 0, model.ErrRefreshTokenExpired
	}

	// Re-resolve the admin flag at rotation time so promotions and
	// demotions take effect without forcing a logout.
	admin, err := isAdmin(ctx, token.UserID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to resolve admin flag: %w", err)
	}

	newTokenPair, err := s.GenerateTokenPair(ctx, token.UserID, admin, deviceInfo, ipAddress)
	if err != nil {
		return nil, 0, err
	}

	newTokenHash := s.hashToken(newTokenPair.RefreshToken)
	var replacedByID *string
	if newToken, err := s.refreshTokenRepo.FindByTokenHash(ctx, newTokenHash); err == nil && newToken != nil {
		replacedByID = &newToken.ID
	}

	if err := s.refreshTokenRepo.Revoke(ctx, token.ID, replacedByID); err != nil {
		log.Printf("[AuthService] Revoke FAILED: token=%s err=%v", token.ID, err)
	}

	return newTokenPair, token.UserID, nil
}

func (s *AuthService) RevokeRefreshToken(ctx context.Context, refreshTokenRaw string) error {
	tokenHash := s.hashToken(refreshTokenRaw)
	token, err := s.refreshTokenRepo.FindByTokenHash(ctx, tokenHash)
	if err != nil {
		return err
	}
	return s.refreshTokenRepo.Revoke(ctx, token.ID, nil)
}

func (s *AuthService) RevokeAllUserTokens(ctx context.Context, userID int64) error {
	return s.refreshTokenRepo.RevokeAllForUser(ctx, userID)
}

func (s *AuthService) revokeTokenFamily(ctx context.Context, token *model.RefreshToken) error {
	if err := s.refreshTokenRepo.RevokeAllForUser(ctx, token.UserID); err != nil {
		return fmt.Errorf("failed to revoke token family: %w", err)
	}
	return nil
}

func (s *AuthService) generateAccessToken(userID int64, isAdmin bool) (string, error) {
	claims := jwt.MapClaims{
		"user_id":  userID,
		"is_admin": isAdmin,
		"exp":      time.Now().Add(time.Duration(s.config.AccessTokenMaxAge) * time.Second).Unix(),
		"iat":      time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

func (s *AuthService) hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
