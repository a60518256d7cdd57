package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/jmoiron/sqlx"

	"studenthub/internal/model"
	"studenthub/internal/queue"
	"studenthub/internal/repository"
)

// ObjectDeleter removes an object from storage by key. Satisfied by
// MediaService; an interface keeps the file service testable without R2.
type ObjectDeleter interface {
	DeleteObject(ctx context.Context, key string) error
}

// CourseFileService handles course file metadata. Bytes live in object
// storage; rows here only record where they went.
type CourseFileService struct {
	fileRepo       repository.CourseFileRepository
	courseRepo     repository.CourseRepository
	enrollmentRepo repository.EnrollmentRepository
	db             *sqlx.DB
	publisher      queue.Publisher
	storage        ObjectDeleter
}

func NewCourseFileService(
	fileRepo repository.CourseFileRepository,
	courseRepo repository.CourseRepository,
	enrollmentRepo repository.EnrollmentRepository,
	db *sqlx.DB,
	publisher queue.Publisher,
	storage ObjectDeleter,
) *CourseFileService {
	return &CourseFileService{
		fileRepo:       fileRepo,
		courseRepo:     courseRepo,
		enrollmentRepo: enrollmentRepo,
		db:             db,
		publisher:      publisher,
		storage:        storage,
	}
}

// Register records an uploaded file against a course. The upload itself has
// already happened (proxied or presigned); this stores the metadata row.
// Uses transaction: insert file + increment counter.
func (s *CourseFileService) Register(ctx context.Context, courseID, userID int64, fileName, fileURL, fileKey, contentType string, sizeBytes int64) (*model.CourseFile, error) {
	if strings.TrimSpace(fileName) == "" || len(fileName) > model.MaxFileNameLength {
		return nil, fmt.Errorf("invalid file name")
	}

	exists, err := s.courseRepo.Exists(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("check course exists: %w", err)
	}
	if !exists {
		return nil, model.ErrCourseNotFound
	}

	enrolled, err := s.enrollmentRepo.Exists(ctx, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("check enrollment: %w", err)
	}
	if !enrolled {
		return nil, model.ErrNotEnrolled
	}

	file := &model.CourseFile{
		CourseID:    courseID,
		UserID:      userID,
		FileName:    fileName,
		FileURL:     fileURL,
		FileKey:     fileKey,
		ContentType: contentType,
		SizeBytes:   sizeBytes,
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.fileRepo.Create(ctx, tx, file); err != nil {
		return nil, err
	}

	if err := s.courseRepo.IncrementFileCount(ctx, tx, courseID, 1); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	log.Printf("[CourseFileService] User %d uploaded file %d to course %d", userID, file.ID, courseID)

	// Publish activity event (after commit, best-effort)
	if s.publisher != nil {
		event := queue.NewFileUploadedEvent(file.ID, courseID, userID, fileName)
		if _, err := s.publisher.Publish(ctx, queue.StreamActivity, event); err != nil {
			log.Printf("[CourseFileService] Failed to publish FileUploaded event: %v", err)
		}
	}

	return file, nil
}

// List returns all files for a course, newest first.
func (s *CourseFileService) List(ctx context.Context, courseID int64) (*model.CourseFileListResponse, error) {
	exists, err := s.courseRepo.Exists(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("check course exists: %w", err)
	}
	if !exists {
		return nil, model.ErrCourseNotFound
	}

	files, err := s.fileRepo.ListByCourseID(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("list course files: %w", err)
	}

	return &model.CourseFileListResponse{Files: files}, nil
}

// Delete removes a file. Only the uploader or an admin may delete it.
// The DB row goes first; storage cleanup is best-effort after commit so a
// failed object delete never leaves a dangling row.
func (s *CourseFileService) Delete(ctx context.Context, fileID, userID int64, isAdmin bool) error {
	file, err := s.fileRepo.GetByID(ctx, fileID)
	if err != nil {
		return err
	}
	if file.UserID != userID && !isAdmin {
		return model.ErrNotFileUploader
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.fileRepo.Delete(ctx, tx, fileID); err != nil {
		return err
	}

	if err := s.courseRepo.IncrementFileCount(ctx, tx, file.CourseID, -1); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	if err := s.storage.DeleteObject(ctx, file.FileKey); err != nil {
		log.Printf("[CourseFileService] Storage cleanup failed for key=%s: %v", file.FileKey, err)
	}

	log.Printf("[CourseFileService] User %d deleted file %d from course %d", userID, fileID, file.CourseID)
	return nil
}
