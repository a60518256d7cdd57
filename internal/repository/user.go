package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"studenthub/internal/model"
)

// userRepository implements UserRepository using sqlx
type userRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

// Create inserts a new user into the database
func (r *userRepository) Create(ctx context.Context, u *model.User) error {
	query := `
		INSERT INTO users (username, email, password_hashed, display_name, avatar_url, avatar_key, is_admin, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, NOW(), NOW())
		RETURNING id, is_active, enrollment_count, created_at, updated_at
	`

	row := r.db.QueryRowxContext(ctx, query,
		u.Username,
		u.Email,
		u.PasswordHashed,
		u.DisplayName,
		u.AvatarURL,
		u.AvatarKey,
		u.IsAdmin,
	)

	err := row.Scan(
		&u.ID,
		&u.IsActive,
		&u.EnrollmentCount,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by their ID
func (r *userRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	query := `
		SELECT id, username, email, password_hashed, display_name, avatar_url, avatar_key, bio,
		       major, graduation_year, is_admin, is_active, enrollment_count, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	var u model.User
	err := r.db.GetContext(ctx, &u, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return &u, nil
}

// GetByUsername retrieves a user by their username
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	query := `
		SELECT id, username, email, password_hashed, display_name, avatar_url, avatar_key, bio,
		       major, graduation_year, is_admin, is_active, enrollment_count, created_at, updated_at
		FROM users
		WHERE username = $1
	`

	var u model.User
	err := r.db.GetContext(ctx, &u, query, username)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}

	return &u, nil
}

// ExistsByUsername checks if a username is already taken
func (r *userRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`

	var exists bool
	err := r.db.GetContext(ctx, &exists, query, username)
	if err != nil {
		return false, fmt.Errorf("failed to check username existence: %w", err)
	}

	return exists, nil
}

// ExistsByEmail checks if an email is already registered
func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`

	var exists bool
	err := r.db.GetContext(ctx, &exists, query, email)
	if err != nil {
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}

	return exists, nil
}

// UpdateProfile applies the non-nil fields of the request to the user's row.
func (r *userRepository) UpdateProfile(ctx context.Context, id int64, req *model.UpdateProfileRequest) (*model.User, error) {
	query := `
		UPDATE users
		SET display_name    = COALESCE($2, display_name),
		    bio             = COALESCE($3, bio),
		    major           = COALESCE($4, major),
		    graduation_year = COALESCE($5, graduation_year),
		    updated_at      = NOW()
		WHERE id = $1
		RETURNING id, username, email, password_hashed, display_name, avatar_url, avatar_key, bio,
		          major, graduation_year, is_admin, is_active, enrollment_count, created_at, updated_at
	`

	var u model.User
	err := r.db.GetContext(ctx, &u, query, id, req.DisplayName, req.Bio, req.Major, req.GraduationYear)
	if err == sql.ErrNoRows {
		return nil, model.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return &u, nil
}

// Directory lists active students alphabetically, optionally filtered by a
// username prefix. Cursor pagination keyed on username: fetch limit+1, trim,
// and hand back the last username as the next cursor.
func (r *userRepository) Directory(ctx context.Context, query string, cursor *string, limit int) ([]model.UserSummary, *string, error) {
	var sqlQuery string
	var args []interface{}

	if cursor == nil {
		sqlQuery = `
			SELECT id, username, email, display_name, avatar_url
			FROM users
			WHERE is_active AND username ILIKE $1
			ORDER BY username ASC
			LIMIT $2
		`
		args = []interface{}{query + "%", limit + 1}
	} else {
		sqlQuery = `
			SELECT id, username, email, display_name, avatar_url
			FROM users
			WHERE is_active AND username ILIKE $1 AND username > $2
			ORDER BY username ASC
			LIMIT $3
		`
		args = []interface{}{query + "%", *cursor, limit + 1}
	}

	var users []model.UserSummary
	err := r.db.SelectContext(ctx, &users, sqlQuery, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list directory: %w", err)
	}

	var nextCursor *string
	if len(users) > limit {
		users = users[:limit]
		c := users[len(users)-1].Username
		nextCursor = &c
	}

	return users, nextCursor, nil
}

// List is the admin dashboard user listing, newest accounts first.
// Cursor is the last id seen, formatted as a string.
func (r *userRepository) List(ctx context.Context, cursor *string, limit int) ([]model.User, *string, error) {
	var sqlQuery string
	var args []interface{}

	if cursor == nil {
		sqlQuery = `
			SELECT id, username, email, password_hashed, display_name, avatar_url, avatar_key, bio,
			       major, graduation_year, is_admin, is_active, enrollment_count, created_at, updated_at
			FROM users
			ORDER BY id DESC
			LIMIT $1
		`
		args = []interface{}{limit + 1}
	} else {
		sqlQuery = `
			SELECT id, username, email, password_hashed, display_name, avatar_url, avatar_key, bio,
			       major, graduation_year, is_admin, is_active, enrollment_count, created_at, updated_at
			FROM users
			WHERE id < $1
			ORDER BY id DESC
			LIMIT $2
		`
		args = []interface{}{*cursor, limit + 1}
	}

	var users []model.User
	err := r.db.SelectContext(ctx, &users, sqlQuery, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list users: %w", err)
	}

	var nextCursor *string
	if len(users) > limit {
		users = users[:limit]
		c := fmt.Sprintf("%d", users[len(users)-1].ID)
		nextCursor = &c
	}

	return users, nextCursor, nil
}

// AdminUpdate toggles the admin role and/or active flag on an account.
func (r *userRepository) AdminUpdate(ctx context.Context, id int64, isAdmin, isActive *bool) (*model.User, error) {
	query := `
		UPDATE users
		SET is_admin   = COALESCE($2, is_admin),
		    is_active  = COALESCE($3, is_active),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING id, username, email, password_hashed, display_name, avatar_url, avatar_key, bio,
		          major, graduation_year, is_admin, is_active, enrollment_count, created_at, updated_at
	`

	var u model.User
	err := r.db.GetContext(ctx, &u, query, id, isAdmin, isActive)
	if err == sql.ErrNoRows {
		return nil, model.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return &u, nil
}

func (r *userRepository) IncrementEnrollmentCount(ctx context.Context, tx *sqlx.Tx, userID int64, delta int) error {
	query := `UPDATE users SET enrollment_count = enrollment_count + $1 WHERE id = $2`
	_, err := tx.ExecContext(ctx, query, delta, userID)
	if err != nil {
		return fmt.Errorf("failed to increment enrollment count: %w", err)
	}
	return nil
}
