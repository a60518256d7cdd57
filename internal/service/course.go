package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"studenthub/internal/model"
	"studenthub/internal/repository"
)

// CourseService handles the course catalog and enrollment.
type CourseService struct {
	courseRepo     repository.CourseRepository
	enrollmentRepo repository.EnrollmentRepository
	userRepo       repository.UserRepository
	db             *sqlx.DB
}

func NewCourseService(
	courseRepo repository.CourseRepository,
	enrollmentRepo repository.EnrollmentRepository,
	userRepo repository.UserRepository,
	db *sqlx.DB,
) *CourseService {
	return &CourseService{
		courseRepo:     courseRepo,
		enrollmentRepo: enrollmentRepo,
		userRepo:       userRepo,
		db:             db,
	}
}

// Create adds a course to the catalog. Admin-only; the handler gates it.
func (s *CourseService) Create(ctx context.Context, req *model.CreateCourseRequest) (*model.Course, error) {
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if code == "" {
		return nil, model.ErrCodeRequired
	}
	if len(code) > model.MaxCourseCodeLength {
		return nil, fmt.Errorf("course code too long (max %d)", model.MaxCourseCodeLength)
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, model.ErrTitleRequired
	}
	if len(req.Title) > model.MaxCourseTitleLength {
		return nil, fmt.Errorf("course title too long (max %d)", model.MaxCourseTitleLength)
	}

	exists, err := s.courseRepo.ExistsByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("check course code: %w", err)
	}
	if exists {
		return nil, model.ErrCourseExists
	}

	course := &model.Course{
		Code:        code,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Instructor:  req.Instructor,
		Semester:    req.Semester,
	}

	if err := s.courseRepo.Create(ctx, course); err != nil {
		return nil, fmt.Errorf("create course: %w", err)
	}

	log.Printf("[CourseService] Course created: id=%d code=%s", course.ID, course.Code)
	return course, nil
}

// Update applies a partial edit to a course. Admin-only.
func (s *CourseService) Update(ctx context.Context, courseID int64, req *model.UpdateCourseRequest) (*model.Course, error) {
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return nil, model.ErrTitleRequired
	}
	return s.courseRepo.Update(ctx, courseID, req)
}

// Delete soft-deletes a course, hiding it from the catalog. Admin-only.
// Comments and files stay in place for audit until a cleanup job runs.
func (s *CourseService) Delete(ctx context.Context, courseID int64) error {
	if err := s.courseRepo.SoftDelete(ctx, courseID); err != nil {
		return err
	}
	log.Printf("[CourseService] Course soft-deleted: id=%d", courseID)
	return nil
}

// GetByID returns a course enriched with the viewer's enrollment status.
func (s *CourseService) GetByID(ctx context.Context, courseID int64, viewerID *int64) (*model.Course, error) {
	course, err := s.courseRepo.GetByID(ctx, courseID)
	if err != nil {
		return nil, err
	}

	if viewerID != nil {
		enrolled, err := s.enrollmentRepo.Exists(ctx, *viewerID, courseID)
		if err == nil {
			course.IsEnrolled = enrolled
		}
	}

	return course, nil
}

// List returns the paginated course catalog. Enrollment status is resolved
// in one batch query to avoid N+1 lookups.
func (s *CourseService) List(ctx context.Context, cursor *string, limit int, viewerID *int64) (*model.CourseListResponse, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	courses, nextCursor, err := s.courseRepo.List(ctx, cursor, limit)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}

	if viewerID != nil && len(courses) > 0 {
		courseIDs := make([]int64, len(courses))
		for i, c := range courses {
			courseIDs[i] = c.ID
		}

		enrolledMap, err := s.enrollmentRepo.CheckEnrollments(ctx, *viewerID, courseIDs)
		if err == nil {
			for i := range courses {
				courses[i].IsEnrolled = enrolledMap[courses[i].ID]
			}
		}
	}

	return &model.CourseListResponse{
		Courses:    courses,
		NextCursor: nextCursor,
		HasMore:    nextCursor != nil,
	}, nil
}

// Enroll adds the student to a course. Uses transaction: insert enrollment +
// increment both counters. Enrolling twice returns ErrAlreadyEnrolled.
func (s *CourseService) Enroll(ctx context.Context, userID, courseID int64) error {
	exists, err := s.courseRepo.Exists(ctx, courseID)
	if err != nil {
		return fmt.Errorf("check course exists: %w", err)
	}
	if !exists {
		return model.ErrCourseNotFound
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	created, err := s.enrollmentRepo.Create(ctx, tx, userID, courseID)
	if err != nil {
		return err
	}
	if !created {
		return model.ErrAlreadyEnrolled
	}

	if err := s.courseRepo.IncrementEnrollmentCount(ctx, tx, courseID, 1); err != nil {
		return err
	}
	if err := s.userRepo.IncrementEnrollmentCount(ctx, tx, userID, 1); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	log.Printf("[CourseService] User %d enrolled in course %d", userID, courseID)
	return nil
}

// Unenroll removes the student from a course. Uses transaction: delete
// enrollment + decrement both counters.
func (s *CourseService) Unenroll(ctx context.Context, userID, courseID int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.enrollmentRepo.Delete(ctx, tx, userID, courseID); err != nil {
		return err
	}

	if err := s.courseRepo.IncrementEnrollmentCount(ctx, tx, courseID, -1); err != nil {
		return err
	}
	if err := s.userRepo.IncrementEnrollmentCount(ctx, tx, userID, -1); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	log.Printf("[CourseService] User %d unenrolled from course %d", userID, courseID)
	return nil
}

// GetRoster returns the paginated list of enrolled students, newest first.
func (s *CourseService) GetRoster(ctx context.Context, courseID int64, cursor *string, limit int) (*model.RosterResponse, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	exists, err := s.courseRepo.Exists(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("check course exists: %w", err)
	}
	if !exists {
		return nil, model.ErrCourseNotFound
	}

	var cursorTime *time.Time
	if cursor != nil {
		t, err := time.Parse(time.RFC3339Nano, *cursor)
		if err != nil {
			return nil, fmt.Errorf("invalid cursor: %w", err)
		}
		cursorTime = &t
	}

	students, nextTime, err := s.enrollmentRepo.GetRoster(ctx, courseID, cursorTime, limit)
	if err != nil {
		return nil, fmt.Errorf("get roster: %w", err)
	}

	var nextCursor *string
	if nextTime != nil {
		formatted := nextTime.Format(time.RFC3339Nano)
		nextCursor = &formatted
	}

	return &model.RosterResponse{
		Students:   students,
		NextCursor: nextCursor,
		HasMore:    nextCursor != nil,
	}, nil
}
