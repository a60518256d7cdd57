package model

import (
	"errors"
	"time"
)

// Course represents a course page in the hub.
type Course struct {
	ID              int64      `db:"id" json:"id"`
	Code            string     `db:"code" json:"code"` // e.g. "CS2040"
	Title           string     `db:"title" json:"title"`
	Description     *string    `db:"description" json:"description"`
	Instructor      *string    `db:"instructor" json:"instructor"`
	Semester        *string    `db:"semester" json:"semester"`
	EnrollmentCount int        `db:"enrollment_count" json:"enrollment_count"`
	CommentCount    int        `db:"comment_count" json:"comment_count"`
	FileCount       int        `db:"file_count" json:"file_count"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt       *time.Time `db:"deleted_at" json:"-"`

	// Joined field: whether the requesting student is enrolled
	IsEnrolled bool `json:"is_enrolled"`
}

// CreateCourseRequest is the admin request body for creating a course.
type CreateCourseRequest struct {
	Code        string  `json:"code"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Instructor  *string `json:"instructor"`
	Semester    *string `json:"semester"`
}

// UpdateCourseRequest is the admin request body for editing a course.
// Nil fields are left unchanged.
type UpdateCourseRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Instructor  *string `json:"instructor"`
	Semester    *string `json:"semester"`
}

// CourseListResponse is the paginated course catalog response.
type CourseListResponse struct {
	Courses    []Course `json:"courses"`
	NextCursor *string  `json:"next_cursor,omitempty"`
	HasMore    bool     `json:"has_more"`
}

// RosterResponse is the paginated list of students enrolled in a course.
type RosterResponse struct {
	Students   []UserSummary `json:"students"`
	NextCursor *string       `json:"next_cursor,omitempty"`
	HasMore    bool          `json:"has_more"`
}

// Course constraints
const (
	MaxCourseCodeLength  = 16
	MaxCourseTitleLength = 200
)

// Course errors
var (
	ErrCourseNotFound  = errors.New("course not found")
	ErrCourseExists    = errors.New("course code already exists")
	ErrCodeRequired    = errors.New("course code is required")
	ErrTitleRequired   = errors.New("course title is required")
	ErrNotEnrolled     = errors.New("not enrolled in this course")
	ErrAlreadyEnrolled = errors.New("already enrolled in this course")
)
