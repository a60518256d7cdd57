package service

import (
	"context"
	"log"

	"studenthub/internal/model"
	"studenthub/internal/repository"
)

// NotificationService handles notification-related business logic.
type NotificationService struct {
	notifRepo repository.NotificationRepository
}

func NewNotificationService(notifRepo repository.NotificationRepository) *NotificationService {
	return &NotificationService{notifRepo: notifRepo}
}

// GetNotifications returns all notifications for a user.
// - Reply notifications are returned individually (not aggregated)
// - Course comment/file notifications are aggregated by course
//   (e.g., "user1 and 5 others commented in CS2040")
// Unread count is computed from the fetched data (no extra query).
func (s *NotificationService) GetNotifications(ctx context.Context, userID int64, limit int) (*model.NotificationListResponse, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}

	// Get reply notifications (not aggregated) + their unread count
	replies, replyUnread, err := s.notifRepo.GetReplyNotifications(ctx, userID, limit)
	if err != nil {
		return nil, err
	}

	// Get aggregated course activity notifications + their unread count
	aggregated, aggUnread, err := s.notifRepo.GetAggregatedNotifications(ctx, userID, limit)
	if err != nil {
		return nil, err
	}

	return &model.NotificationListResponse{
		Replies:     replies,
		Aggregated:  aggregated,
		UnreadCount: replyUnread + aggUnread,
	}, nil
}

// MarkAsRead marks specific notifications as read.
func (s *NotificationService) MarkAsRead(ctx context.Context, userID int64, notificationIDs []int64) error {
	return s.notifRepo.MarkAsRead(ctx, userID, notificationIDs)
}

// MarkAllAsRead marks all notifications for a user as read.
func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID int64) error {
	return s.notifRepo.MarkAllAsRead(ctx, userID)
}

// GetUnreadCount returns the number of unread notifications (for badge display).
func (s *NotificationService) GetUnreadCount(ctx context.Context, userID int64) (int, error) {
	return s.notifRepo.GetUnreadCount(ctx, userID)
}

// CreateNotification creates a notification row. Called by the worker during
// fan-out; self-notifications are dropped here as a last line of defense.
func (s *NotificationService) CreateNotification(
	ctx context.Context,
	userID, actorID int64,
	notifType string,
	courseID, commentID, fileID *int64,
) error {
	if userID == actorID {
		return nil
	}

	if err := s.notifRepo.Create(ctx, userID, actorID, notifType, courseID, commentID, fileID); err != nil {
		return err
	}

	log.Printf("[NotificationService] Created: user=%d actor=%d type=%s", userID, actorID, notifType)
	return nil
}
