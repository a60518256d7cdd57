package model

import (
	"errors"
	"time"
)

// User represents a student (or admin) account in the hub
type User struct {
	ID              int64     `db:"id" json:"id"`
	Username        string    `db:"username" json:"username"`
	Email           string    `db:"email" json:"email"`
	PasswordHashed  string    `db:"password_hashed" json:"-"` // "-" hides from JSON output
	DisplayName     *string   `db:"display_name" json:"display_name"`
	AvatarURL       *string   `db:"avatar_url" json:"avatar_url"`
	AvatarKey       *string   `db:"avatar_key" json:"-"`
	Bio             *string   `db:"bio" json:"bio"`
	Major           *string   `db:"major" json:"major"`
	GraduationYear  *int      `db:"graduation_year" json:"graduation_year"`
	IsAdmin         bool      `db:"is_admin" json:"is_admin"`
	IsActive        bool      `db:"is_active" json:"is_active"`
	EnrollmentCount int       `db:"enrollment_count" json:"enrollment_count"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// UserSummary is the denormalized author snapshot joined onto comments,
// files and notifications. Not live-updated after fetch.
type UserSummary struct {
	ID          int64   `db:"id" json:"id"`
	Username    string  `db:"username" json:"username"`
	Email       string  `db:"email" json:"email"`
	DisplayName *string `db:"display_name" json:"display_name"`
	AvatarURL   *string `db:"avatar_url" json:"avatar_url"`
}

// RegisterRequest represents the data needed to register a new student
type RegisterRequest struct {
	Username    string  `json:"username"`
	Email       string  `json:"email"`
	Password    string  `json:"password"`
	DisplayName string  `json:"display_name"`
	AvatarURL   *string `json:"-"`
	AvatarKey   *string `json:"-"`
}

// LoginRequest represents the data needed to log in
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UpdateProfileRequest is the request body for PATCH /me.
// Nil fields are left unchanged.
type UpdateProfileRequest struct {
	DisplayName    *string `json:"display_name"`
	Bio            *string `json:"bio"`
	Major          *string `json:"major"`
	GraduationYear *int    `json:"graduation_year"`
}

// ProfileResponse is a student profile with viewer-specific enrichment.
type ProfileResponse struct {
	User *User `json:"user"`
}

// DirectoryResponse is the paginated student directory listing.
type DirectoryResponse struct {
	Students   []UserSummary `json:"students"`
	NextCursor *string       `json:"next_cursor,omitempty"`
	HasMore    bool          `json:"has_more"`
}

// AdminUpdateUserRequest is the admin dashboard request for toggling roles
// or deactivating an account.
type AdminUpdateUserRequest struct {
	IsAdmin  *bool `json:"is_admin"`
	IsActive *bool `json:"is_active"`
}

var (
	// ErrUserNotFound is returned when a user cannot be found
	ErrUserNotFound = errors.New("user not found")

	// ErrUsernameExists is returned when attempting to create a user with a taken username
	ErrUsernameExists = errors.New("username already exists")

	// ErrEmailExists is returned when attempting to create a user with a taken email
	ErrEmailExists = errors.New("email already exists")

	// ErrInvalidCredentials is returned when login credentials are incorrect
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserDeactivated is returned when a deactivated account attempts to log in
	ErrUserDeactivated = errors.New("user account is deactivated")
)
