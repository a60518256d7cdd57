package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"studenthub/internal/model"
)

type courseRepository struct {
	db *sqlx.DB
}

func NewCourseRepository(db *sqlx.DB) CourseRepository {
	return &courseRepository{db: db}
}

// Create inserts a new course.
func (r *courseRepository) Create(ctx context.Context, c *model.Course) error {
	query := `
		INSERT INTO courses (code, title, description, instructor, semester, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id, enrollment_count, comment_count, file_count, created_at, updated_at
	`

	row := r.db.QueryRowxContext(ctx, query, c.Code, c.Title, c.Description, c.Instructor, c.Semester)
	err := row.Scan(&c.ID, &c.EnrollmentCount, &c.CommentCount, &c.FileCount, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert course: %w", err)
	}

	return nil
}

// GetByID retrieves a single course. Soft-deleted courses are not returned.
func (r *courseRepository) GetByID(ctx context.Context, id int64) (*model.Course, error) {
	query := `
		SELECT id, code, title, description, instructor, semester,
		       enrollment_count, comment_count, file_count, created_at, updated_at, deleted_at
		FROM courses
		WHERE id = $1 AND deleted_at IS NULL
	`

	var c model.Course
	err := r.db.GetContext(ctx, &c, query, id)
	if err == sql.ErrNoRows {
		return nil, model.ErrCourseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get course: %w", err)
	}

	return &c, nil
}

// Exists checks if a course exists (not deleted).
func (r *courseRepository) Exists(ctx context.Context, id int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM courses WHERE id = $1 AND deleted_at IS NULL)`

	var exists bool
	err := r.db.GetContext(ctx, &exists, query, id)
	if err != nil {
		return false, fmt.Errorf("check course exists: %w", err)
	}

	return exists, nil
}

// ExistsByCode checks if a course code is already taken.
func (r *courseRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM courses WHERE code = $1 AND deleted_at IS NULL)`

	var exists bool
	err := r.db.GetContext(ctx, &exists, query, code)
	if err != nil {
		return false, fmt.Errorf("check course code exists: %w", err)
	}

	return exists, nil
}

// List returns the course catalog ordered by code with cursor pagination.
func (r *courseRepository) List(ctx context.Context, cursor *string, limit int) ([]model.Course, *string, error) {
	var query string
	var args []interface{}

	if cursor == nil {
		query = `
			SELECT id, code, title, description, instructor, semester,
			       enrollment_count, comment_count, file_count, created_at, updated_at, deleted_at
			FROM courses
			WHERE deleted_at IS NULL
			ORDER BY code ASC
			LIMIT $1
		`
		args = []interface{}{limit + 1}
	} else {
		query = `
			SELECT id, code, title, description, instructor, semester,
			       enrollment_count, comment_count, file_count, created_at, updated_at, deleted_at
			FROM courses
			WHERE deleted_at IS NULL AND code > $1
			ORDER BY code ASC
			LIMIT $2
		`
		args = []interface{}{*cursor, limit + 1}
	}

	var courses []model.Course
	err := r.db.SelectContext(ctx, &courses, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("list courses: %w", err)
	}

	var nextCursor *string
	if len(courses) > limit {
		courses = courses[:limit]
		c := courses[len(courses)-1].Code
		nextCursor = &c
	}

	return courses, nextCursor, nil
}

// Update applies the non-nil fields of the request to the course row.
func (r *courseRepository) Update(ctx context.Context, id int64, req *model.UpdateCourseRequest) (*model.Course, error) {
	query := `
		UPDATE courses
		SET title       = COALESCE($2, title),
		    description = COALESCE($3, description),
		    instructor  = COALESCE($4, instructor),
		    semester    = COALESCE($5, semester),
		    updated_at  = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING id, code, title, description, instructor, semester,
		          enrollment_count, comment_count, file_count, created_at, updated_at, deleted_at
	`

	var c model.Course
	err := r.db.GetContext(ctx, &c, query, id, req.Title, req.Description, req.Instructor, req.Semester)
	if err == sql.ErrNoRows {
		return nil, model.ErrCourseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update course: %w", err)
	}

	return &c, nil
}

// SoftDelete marks a course as deleted. Comments and files stay in place for
// a potential restore; listings filter on deleted_at.
func (r *courseRepository) SoftDelete(ctx context.Context, id int64) error {
	query := `UPDATE courses SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete course rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrCourseNotFound
	}

	return nil
}

func (r *courseRepository) IncrementEnrollmentCount(ctx context.Context, tx *sqlx.Tx, courseID int64, delta int) error {
	query := `UPDATE courses SET enrollment_count = enrollment_count + $1 WHERE id = $2`
	_, err := tx.ExecContext(ctx, query, delta, courseID)
	if err != nil {
		return fmt.Errorf("increment enrollment count: %w", err)
	}
	return nil
}

func (r *courseRepository) IncrementCommentCount(ctx context.Context, tx *sqlx.Tx, courseID int64, delta int) error {
	query := `UPDATE courses SET comment_count = comment_count + $1 WHERE id = $2`
	_, err := tx.ExecContext(ctx, query, delta, courseID)
	if err != nil {
		return fmt.Errorf("increment comment count: %w", err)
	}
	return nil
}

func (r *courseRepository) IncrementFileCount(ctx context.Context, tx *sqlx.Tx, courseID int64, delta int) error {
	query := `UPDATE courses SET file_count = file_count + $1 WHERE id = $2`
	_, err := tx.ExecContext(ctx, query, delta, courseID)
	if err != nil {
		return fmt.Errorf("increment file count: %w", err)
	}
	return nil
}
