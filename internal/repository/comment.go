package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"studenthub/internal/model"
)

type commentRepository struct {
	db *sqlx.DB
}

func NewCommentRepository(db *sqlx.DB) CommentRepository {
	return &commentRepository{db: db}
}

// Create inserts a new comment. Uses transaction for atomic counter update.
func (r *commentRepository) Create(ctx context.Context, tx *sqlx.Tx, courseID, userID int64, content string, parentID *int64) (*model.Comment, error) {
	query := `
		INSERT INTO course_comments (course_id, user_id, content, parent_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, course_id, user_id, content, parent_id, created_at
	`
	var comment model.Comment
	err := tx.GetContext(ctx, &comment, query, courseID, userID, content, parentID)
	if err != nil {
		return nil, fmt.Errorf("insert comment: %w", err)
	}
	return &comment, nil
}

// ListByCourseID returns every comment for a course with the author snapshot
// joined in. The list is fetched wholesale: the thread tree is rebuilt from
// it on every fetch, so ordering here only needs to be stable.
func (r *commentRepository) ListByCourseID(ctx context.Context, courseID int64) ([]model.Comment, error) {
	query := `
		SELECT c.id, c.course_id, c.user_id, c.content, c.parent_id, c.created_at,
		       u.id as "author.id", u.username as "author.username", u.email as "author.email",
		       u.display_name as "author.display_name", u.avatar_url as "author.avatar_url"
		FROM course_comments c
		JOIN users u ON u.id = c.user_id
		WHERE c.course_id = $1
		ORDER BY c.created_at ASC, c.id ASC
	`

	// Use a struct that can scan the joined author data
	type commentRow struct {
		ID            int64     `db:"id"`
		CourseID      int64     `db:"course_id"`
		UserID        int64     `db:"user_id"`
		Content       string    `db:"content"`
		ParentID      *int64    `db:"parent_id"`
		CreatedAt     time.Time `db:"created_at"`
		AuthorID      int64     `db:"author.id"`
		AuthorName    string    `db:"author.username"`
		AuthorEmail   string    `db:"author.email"`
		AuthorDisplay *string   `db:"author.display_name"`
		AuthorAvatar  *string   `db:"author.avatar_url"`
	}

	var rows []commentRow
	err := r.db.SelectContext(ctx, &rows, query, courseID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}

	comments := make([]model.Comment, len(rows))
	for i, row := range rows {
		comments[i] = model.Comment{
			ID:        row.ID,
			CourseID:  row.CourseID,
			UserID:    row.UserID,
			Content:   row.Content,
			ParentID:  row.ParentID,
			CreatedAt: row.CreatedAt,
			Author: &model.UserSummary{
				ID:          row.AuthorID,
				Username:    row.AuthorName,
				Email:       row.AuthorEmail,
				DisplayName: row.AuthorDisplay,
				AvatarURL:   row.AuthorAvatar,
			},
		}
	}

	return comments, nil
}

// GetByID retrieves a single comment.
func (r *commentRepository) GetByID(ctx context.Context, commentID int64) (*model.Comment, error) {
	query := `
		SELECT id, course_id, user_id, content, parent_id, created_at
		FROM course_comments
		WHERE id = $1
	`
	var comment model.Comment
	err := r.db.GetContext(ctx, &comment, query, commentID)
	if err == sql.ErrNoRows {
		return nil, model.ErrCommentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get comment: %w", err)
	}
	return &comment, nil
}

// Delete removes a comment and all of its transitive replies (the parent_id
// foreign key carries ON DELETE CASCADE). Returns the ids of every removed
// row, for counter decrement and view-cache cleanup; the subtree must be
// collected BEFORE the delete, since the cascade erases the descendants.
func (r *commentRepository) Delete(ctx context.Context, tx *sqlx.Tx, commentID int64) ([]int64, error) {
	var deletedIDs []int64
	err := tx.SelectContext(ctx, &deletedIDs, `
		WITH RECURSIVE subtree AS (
			SELECT id FROM course_comments WHERE id = $1
			UNION ALL
			SELECT c.id FROM course_comments c
			JOIN subtree s ON c.parent_id = s.id
		)
		SELECT id FROM subtree
	`, commentID)
	if err != nil {
		return nil, fmt.Errorf("collect comments to delete: %w", err)
	}
	if len(deletedIDs) == 0 {
		return nil, model.ErrCommentNotFound
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM course_comments WHERE id = $1`, commentID)
	if err != nil {
		return nil, fmt.Errorf("delete comment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("delete comment rows affected: %w", err)
	}
	if rows == 0 {
		return nil, model.ErrCommentNotFound
	}

	return deletedIDs, nil
}
