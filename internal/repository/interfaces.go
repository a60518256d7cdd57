package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"studenthub/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	UpdateProfile(ctx context.Context, id int64, req *model.UpdateProfileRequest) (*model.User, error)
	// Directory lists students alphabetically by username, optionally
	// filtered by a prefix query. Cursor is the last username seen.
	Directory(ctx context.Context, query string, cursor *string, limit int) ([]model.UserSummary, *string, error)
	// List is the admin dashboard user listing.
	List(ctx context.Context, cursor *string, limit int) ([]model.User, *string, error)
	AdminUpdate(ctx context.Context, id int64, isAdmin, isActive *bool) (*model.User, error)
	IncrementEnrollmentCount(ctx context.Context, tx *sqlx.Tx, userID int64, delta int) error
}

type RefreshTokenRepository interface {
	Create(ctx context.Context, token *model.RefreshToken) error
	FindByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error)
	Revoke(ctx context.Context, id string, replacedBy *string) error
	RevokeAllForUser(ctx context.Context, userID int64) error
	DeleteExpired(ctx context.Context, olderThan time.Duration) (int64, error)
}

type CourseRepository interface {
	Create(ctx context.Context, course *model.Course) error
	GetByID(ctx context.Context, id int64) (*model.Course, error)
	Exists(ctx context.Context, id int64) (bool, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	// List returns the course catalog ordered by code; cursor is the last
	// code seen.
	List(ctx context.Context, cursor *string, limit int) ([]model.Course, *string, error)
	Update(ctx context.Context, id int64, req *model.UpdateCourseRequest) (*model.Course, error)
	SoftDelete(ctx context.Context, id int64) error
	IncrementEnrollmentCount(ctx context.Context, tx *sqlx.Tx, courseID int64, delta int) error
	IncrementCommentCount(ctx context.Context, tx *sqlx.Tx, courseID int64, delta int) error
	IncrementFileCount(ctx context.Context, tx *sqlx.Tx, courseID int64, delta int) error
}

type EnrollmentRepository interface {
	Create(ctx context.Context, tx *sqlx.Tx, userID, courseID int64) (bool, error)
	Delete(ctx context.Context, tx *sqlx.Tx, userID, courseID int64) error
	Exists(ctx context.Context, userID, courseID int64) (bool, error)
	GetRoster(ctx context.Context, courseID int64, cursor *time.Time, limit int) ([]model.UserSummary, *time.Time, error)
	CheckEnrollments(ctx context.Context, userID int64, courseIDs []int64) (map[int64]bool, error)
	// GetEnrolledUserIDs returns every student enrolled in a course.
	// Used by the worker for notification fan-out.
	GetEnrolledUserIDs(ctx context.Context, courseID int64) ([]int64, error)
}

type CommentRepository interface {
	Create(ctx context.Context, tx *sqlx.Tx, courseID, userID int64, content string, parentID *int64) (*model.Comment, error)
	// ListByCourseID returns the complete flat comment list for a course,
	// each row carrying the denormalized author snapshot. The thread tree is
	// rebuilt from this list on every fetch.
	ListByCourseID(ctx context.Context, courseID int64) ([]model.Comment, error)
	GetByID(ctx context.Context, commentID int64) (*model.Comment, error)
	// Delete removes a comment; descendant replies go with it via
	// ON DELETE CASCADE. Returns the ids of every removed row, for counter
	// decrement and view-cache cleanup. Authorization is the caller's
	// responsibility.
	Delete(ctx context.Context, tx *sqlx.Tx, commentID int64) (deletedIDs []int64, err error)
}

type CourseFileRepository interface {
	Create(ctx context.Context, tx *sqlx.Tx, file *model.CourseFile) error
	GetByID(ctx context.Context, fileID int64) (*model.CourseFile, error)
	ListByCourseID(ctx context.Context, courseID int64) ([]model.CourseFile, error)
	Delete(ctx context.Context, tx *sqlx.Tx, fileID int64) error
}

type NotificationRepository interface {
	// Create inserts a new notification
	Create(ctx context.Context, userID, actorID int64, notifType string, courseID, commentID, fileID *int64) error
	// GetReplyNotifications returns non-aggregated reply notifications + unread count
	GetReplyNotifications(ctx context.Context, userID int64, limit int) ([]model.Notification, int, error)
	// GetAggregatedNotifications returns course activity grouped by course + unread count
	GetAggregatedNotifications(ctx context.Context, userID int64, limit int) ([]model.AggregatedNotification, int, error)
	// MarkAsRead marks specific notifications as read
	MarkAsRead(ctx context.Context, userID int64, notificationIDs []int64) error
	// MarkAllAsRead marks all notifications for a user as read
	MarkAllAsRead(ctx context.Context, userID int64) error
	// GetUnreadCount returns the count of unread notifications
	GetUnreadCount(ctx context.Context, userID int64) (int, error)
}
