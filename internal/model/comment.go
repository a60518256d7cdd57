package model

import (
	"errors"
	"time"
)

// Comment represents a comment on a course page. Comments form threads via
// ParentID; a nil ParentID marks a top-level comment.
type Comment struct {
	ID        int64        `db:"id" json:"id"`
	CourseID  int64        `db:"course_id" json:"course_id"`
	UserID    int64        `db:"user_id" json:"user_id"`
	Content   string       `db:"content" json:"content"`
	ParentID  *int64       `db:"parent_id" json:"parent_id,omitempty"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	Author    *UserSummary `json:"author,omitempty"` // Joined field
}

// CreateCommentRequest is the request body for posting a comment or reply.
type CreateCommentRequest struct {
	Content  string `json:"content"`
	ParentID *int64 `json:"parent_id,omitempty"`
}

// Comment constraints
const (
	MaxCommentLength = 2000
)

// Comment errors
var (
	ErrCommentNotFound   = errors.New("comment not found")
	ErrNotCommentAuthor  = errors.New("not the author of this comment")
	ErrContentRequired   = errors.New("comment content is required")
	ErrContentTooLong    = errors.New("comment content too long")
	ErrParentWrongCourse = errors.New("parent comment does not belong to this course")
)
