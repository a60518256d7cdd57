package model

import (
	"time"
)

// Notification types
const (
	NotificationTypeReply         = "reply"          // someone replied to your comment
	NotificationTypeCourseComment = "course_comment" // new thread in a course you are enrolled in
	NotificationTypeCourseFile    = "course_file"    // new file uploaded to a course you are enrolled in
)

// Notification represents a single notification record in the database.
type Notification struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"-"`         // Recipient
	ActorID   int64     `db:"actor_id" json:"actor_id"` // Who triggered it
	Type      string    `db:"type" json:"type"`
	CourseID  *int64    `db:"course_id" json:"course_id,omitempty"`
	CommentID *int64    `db:"comment_id" json:"comment_id,omitempty"`
	FileID    *int64    `db:"file_id" json:"file_id,omitempty"`
	IsRead    bool      `db:"is_read" json:"is_read"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`

	// Joined field for display
	Actor *UserSummary `json:"actor,omitempty"`
}

// AggregatedNotification groups course-level activity on the same course.
// Used for "user1 and 5 others commented in CS2040" display.
type AggregatedNotification struct {
	Type       string        `json:"type"`                // course_comment, course_file
	CourseID   *int64        `json:"course_id,omitempty"` // For navigation to the course page
	Actors     []UserSummary `json:"actors"`              // First few actors
	TotalCount int           `json:"total_count"`         // Total actors (for "and X others")
	LatestAt   time.Time     `json:"latest_at"`           // Most recent activity
	IsRead     bool          `json:"is_read"`             // True if ALL in group are read
}

// NotificationListResponse is the notification list response.
type NotificationListResponse struct {
	// Replies to the user's own comments are not aggregated - shown individually
	Replies []Notification `json:"replies"`
	// Course-level comment/file activity is aggregated by course
	Aggregated []AggregatedNotification `json:"aggregated"`
	// Unread count for badge
	UnreadCount int `json:"unread_count"`
}

// MarkReadRequest is the request body for marking notifications as read.
type MarkReadRequest struct {
	NotificationIDs []int64 `json:"notification_ids"`
}
