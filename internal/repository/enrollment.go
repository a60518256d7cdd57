package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"studenthub/internal/model"
)

type enrollmentRepository struct {
	db *sqlx.DB
}

func NewEnrollmentRepository(db *sqlx.DB) EnrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (r *enrollmentRepository) Create(ctx context.Context, tx *sqlx.Tx, userID, courseID int64) (bool, error) {
	query := `
		INSERT INTO enrollments (user_id, course_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, course_id) DO NOTHING
	`
	result, err := tx.ExecContext(ctx, query, userID, courseID)
	if err != nil {
		return false, fmt.Errorf("failed to create enrollment: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

func (r *enrollmentRepository) Delete(ctx context.Context, tx *sqlx.Tx, userID, courseID int64) error {
	query := `DELETE FROM enrollments WHERE user_id = $1 AND course_id = $2`
	result, err := tx.ExecContext(ctx, query, userID, courseID)
	if err != nil {
		return fmt.Errorf("failed to delete enrollment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrNotEnrolled
	}

	return nil
}

func (r *enrollmentRepository) Exists(ctx context.Context, userID, courseID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM enrollments WHERE user_id = $1 AND course_id = $2)`
	var exists bool
	err := r.db.GetContext(ctx, &exists, query, userID, courseID)
	if err != nil {
		return false, fmt.Errorf("failed to check enrollment existence: %w", err)
	}
	return exists, nil
}

// GetRoster retrieves students enrolled in a course with cursor-based
// pagination keyed on enrollment time: fetch limit+1, trim to limit, and
// hand back the last row's timestamp as the next cursor.
func (r *enrollmentRepository) GetRoster(ctx context.Context, courseID int64, cursor *time.Time, limit int) ([]model.UserSummary, *time.Time, error) {
	var query string
	var args []interface{}

	if cursor == nil {
		query = `
			SELECT u.id, u.username, u.email, u.display_name, u.avatar_url, e.created_at
			FROM enrollments e
			JOIN users u ON u.id = e.user_id
			WHERE e.course_id = $1
			ORDER BY e.created_at DESC
			LIMIT $2
		`
		args = []interface{}{courseID, limit + 1}
	} else {
		query = `
			SELECT u.id, u.username, u.email, u.display_name, u.avatar_url, e.created_at
			FROM enrollments e
			JOIN users u ON u.id = e.user_id
			WHERE e.course_id = $1 AND e.created_at < $2
			ORDER BY e.created_at DESC
			LIMIT $3
		`
		args = []interface{}{courseID, cursor, limit + 1}
	}

	type userWithTime struct {
		model.UserSummary
		CreatedAt time.Time `db:"created_at"`
	}

	var results []userWithTime
	err := r.db.SelectContext(ctx, &results, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get roster: %w", err)
	}

	var users []model.UserSummary
	var nextCursor *time.Time

	if len(results) > limit {
		results = results[:limit]
		nextCursor = &results[len(results)-1].CreatedAt
	}

	for _, result := range results {
		users = append(users, result.UserSummary)
	}

	return users, nextCursor, nil
}

// CheckEnrollments reports which of the given courses the user is enrolled
// in. Batch query with ANY($2) to avoid N+1 lookups when rendering the
// catalog.
func (r *enrollmentRepository) CheckEnrollments(ctx context.Context, userID int64, courseIDs []int64) (map[int64]bool, error) {
	if len(courseIDs) == 0 {
		return make(map[int64]bool), nil
	}

	query := `SELECT course_id FROM enrollments WHERE user_id = $1 AND course_id = ANY($2)`
	var enrolledIDs []int64
	err := r.db.SelectContext(ctx, &enrolledIDs, query, userID, pq.Array(courseIDs))
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to check enrollments: %w", err)
	}

	result := make(map[int64]bool)
	for _, id := range courseIDs {
		result[id] = false
	}
	for _, id := range enrolledIDs {
		result[id] = true
	}

	return result, nil
}

func (r *enrollmentRepository) GetEnrolledUserIDs(ctx context.Context, courseID int64) ([]int64, error) {
	query := `SELECT user_id FROM enrollments WHERE course_id = $1`
	var userIDs []int64
	err := r.db.SelectContext(ctx, &userIDs, query, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get enrolled user ids: %w", err)
	}
	return userIDs, nil
}
