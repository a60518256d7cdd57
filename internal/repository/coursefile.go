package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"studenthub/internal/model"
)

type courseFileRepository struct {
	db *sqlx.DB
}

func NewCourseFileRepository(db *sqlx.DB) CourseFileRepository {
	return &courseFileRepository{db: db}
}

// Create inserts a file metadata row. Uses transaction for atomic counter update.
func (r *courseFileRepository) Create(ctx context.Context, tx *sqlx.Tx, f *model.CourseFile) error {
	query := `
		INSERT INTO course_files (course_id, user_id, file_name, file_url, file_key, content_type, size_bytes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	err := tx.QueryRowxContext(ctx, query,
		f.CourseID,
		f.UserID,
		f.FileName,
		f.FileURL,
		f.FileKey,
		f.ContentType,
		f.SizeBytes,
	).Scan(&f.ID, &f.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert course file: %w", err)
	}
	return nil
}

// GetByID retrieves a single file record.
func (r *courseFileRepository) GetByID(ctx context.Context, fileID int64) (*model.CourseFile, error) {
	query := `
		SELECT id, course_id, user_id, file_name, file_url, file_key, content_type, size_bytes, created_at
		FROM course_files
		WHERE id = $1
	`
	var f model.CourseFile
	err := r.db.GetContext(ctx, &f, query, fileID)
	if err == sql.ErrNoRows {
		return nil, model.ErrFileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get course file: %w", err)
	}
	return &f, nil
}

// ListByCourseID returns all files for a course, newest first, with the
// uploader snapshot joined in.
func (r *courseFileRepository) ListByCourseID(ctx context.Context, courseID int64) ([]model.CourseFile, error) {
	query := `
		SELECT f.id, f.course_id, f.user_id, f.file_name, f.file_url, f.file_key, f.content_type, f.size_bytes, f.created_at,
		       u.id as "uploader.id", u.username as "uploader.username", u.email as "uploader.email",
		       u.display_name as "uploader.display_name", u.avatar_url as "uploader.avatar_url"
		FROM course_files f
		JOIN users u ON u.id = f.user_id
		WHERE f.course_id = $1
		ORDER BY f.created_at DESC, f.id DESC
	`

	type fileRow struct {
		ID              int64     `db:"id"`
		CourseID        int64     `db:"course_id"`
		UserID          int64     `db:"user_id"`
		FileName        string    `db:"file_name"`
		FileURL         string    `db:"file_url"`
		FileKey         string    `db:"file_key"`
		ContentType     string    `db:"content_type"`
		SizeBytes       int64     `db:"size_bytes"`
		CreatedAt       time.Time `db:"created_at"`
		UploaderID      int64     `db:"uploader.id"`
		UploaderName    string    `db:"uploader.username"`
		UploaderEmail   string    `db:"uploader.email"`
		UploaderDisplay *string   `db:"uploader.display_name"`
		UploaderAvatar  *string   `db:"uploader.avatar_url"`
	}

	var rows []fileRow
	err := r.db.SelectContext(ctx, &rows, query, courseID)
	if err != nil {
		return nil, fmt.Errorf("list course files: %w", err)
	}

	files := make([]model.CourseFile, len(rows))
	for i, row := range rows {
		files[i] = model.CourseFile{
			ID:          row.ID,
			CourseID:    row.CourseID,
			UserID:      row.UserID,
			FileName:    row.FileName,
			FileURL:     row.FileURL,
			FileKey:     row.FileKey,
			ContentType: row.ContentType,
			SizeBytes:   row.SizeBytes,
			CreatedAt:   row.CreatedAt,
			Uploader: &model.UserSummary{
				ID:          row.UploaderID,
				Username:    row.UploaderName,
				Email:       row.UploaderEmail,
				DisplayName: row.UploaderDisplay,
				AvatarURL:   row.UploaderAvatar,
			},
		}
	}

	return files, nil
}

// Delete removes a file metadata row. Authorization is the caller's
// responsibility; object storage cleanup happens after commit.
func (r *courseFileRepository) Delete(ctx context.Context, tx *sqlx.Tx, fileID int64) error {
	result, err := tx.ExecContext(ctx, `DELETE FROM course_files WHERE id = $1`, fileID)
	if err != nil {
		return fmt.Errorf("delete course file: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete course file rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrFileNotFound
	}
	return nil
}
