package service

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"studenthub/internal/model"
)

// =============================================================================
// MOCKS
// =============================================================================

// noopDriver is a database/sql driver whose connections only know how to
// begin, commit and roll back. It lets service tests run through the
// transactional paths while the repository mocks absorb every query.
type noopDriver struct{}

func (noopDriver) Open(name string) (driver.Conn, error) { return noopConn{}, nil }

type noopConn struct{}

func (noopConn) Prepare(query string) (driver.Stmt, error) {
	return nil, errors.New("noop driver does not prepare statements")
}
func (noopConn) Close() error              { return nil }
func (noopConn) Begin() (driver.Tx, error) { return noopTx{}, nil }

type noopTx struct{}

func (noopTx) Commit() error   { return nil }
func (noopTx) Rollback() error { return nil }

func init() {
	sql.Register("comment-service-test", noopDriver{})
}

func newTxDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sql.Open("comment-service-test", "")
	if err != nil {
		t.Fatalf("open noop db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "postgres")
}

type mockCommentRepository struct {
	createFn         func(ctx context.Context, tx *sqlx.Tx, courseID, userID int64, content string, parentID *int64) (*model.Comment, error)
	listByCourseIDFn func(ctx context.Context, courseID int64) ([]model.Comment, error)
	getByIDFn        func(ctx context.Context, commentID int64) (*model.Comment, error)
	deleteFn         func(ctx context.Context, tx *sqlx.Tx, commentID int64) ([]int64, error)
}

func (m *mockCommentRepository) Create(ctx context.Context, tx *sqlx.Tx, courseID, userID int64, content string, parentID *int64) (*model.Comment, error) {
	if m.createFn != nil {
		return m.createFn(ctx, tx, courseID, userID, content, parentID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockCommentRepository) ListByCourseID(ctx context.Context, courseID int64) ([]model.Comment, error) {
	if m.listByCourseIDFn != nil {
		return m.listByCourseIDFn(ctx, courseID)
	}
	return nil, nil
}

func (m *mockCommentRepository) GetByID(ctx context.Context, commentID int64) (*model.Comment, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, commentID)
	}
	return nil, model.ErrCommentNotFound
}

func (m *mockCommentRepository) Delete(ctx context.Context, tx *sqlx.Tx, commentID int64) ([]int64, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, tx, commentID)
	}
	return nil, model.ErrCommentNotFound
}

type mockCourseRepository struct {
	existsFn          func(ctx context.Context, id int64) (bool, error)
	existsCalls       int
	commentCountDelta []int
}

func (m *mockCourseRepository) Create(ctx context.Context, course *model.Course) error {
	return errors.New("not implemented")
}

func (m *mockCourseRepository) GetByID(ctx context.Context, id int64) (*model.Course, error) {
	return nil, model.ErrCourseNotFound
}

func (m *mockCourseRepository) Exists(ctx context.Context, id int64) (bool, error) {
	m.existsCalls++
	if m.existsFn != nil {
		return m.existsFn(ctx, id)
	}
	return false, nil
}

func (m *mockCourseRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	return false, nil
}

func (m *mockCourseRepository) List(ctx context.Context, cursor *string, limit int) ([]model.Course, *string, error) {
	return nil, nil, nil
}

func (m *mockCourseRepository) Update(ctx context.Context, id int64, req *model.UpdateCourseRequest) (*model.Course, error) {
	return nil, model.ErrCourseNotFound
}

func (m *mockCourseRepository) SoftDelete(ctx context.Context, id int64) error {
	return model.ErrCourseNotFound
}

func (m *mockCourseRepository) IncrementEnrollmentCount(ctx context.Context, tx *sqlx.Tx, courseID int64, delta int) error {
	return nil
}

func (m *mockCourseRepository) IncrementCommentCount(ctx context.Context, tx *sqlx.Tx, courseID int64, delta int) error {
	m.commentCountDelta = append(m.commentCountDelta, delta)
	return nil
}

func (m *mockCourseRepository) IncrementFileCount(ctx context.Context, tx *sqlx.Tx, courseID int64, delta int) error {
	return nil
}

type mockEnrollmentRepository struct {
	existsFn func(ctx context.Context, userID, courseID int64) (bool, error)
}

func (m *mockEnrollmentRepository) Create(ctx context.Context, tx *sqlx.Tx, userID, courseID int64) (bool, error) {
	return false, errors.New("not implemented")
}

func (m *mockEnrollmentRepository) Delete(ctx context.Context, tx *sqlx.Tx, userID, courseID int64) error {
	return model.ErrNotEnrolled
}

func (m *mockEnrollmentRepository) Exists(ctx context.Context, userID, courseID int64) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, userID, courseID)
	}
	return false, nil
}

func (m *mockEnrollmentRepository) GetRoster(ctx context.Context, courseID int64, cursor *time.Time, limit int) ([]model.UserSummary, *time.Time, error) {
	return nil, nil, nil
}

func (m *mockEnrollmentRepository) CheckEnrollments(ctx context.Context, userID int64, courseIDs []int64) (map[int64]bool, error) {
	return map[int64]bool{}, nil
}

func (m *mockEnrollmentRepository) GetEnrolledUserIDs(ctx context.Context, courseID int64) ([]int64, error) {
	return nil, nil
}

// mockThreadViewCache is an in-memory stand-in for the Redis-backed cache.
type mockThreadViewCache struct {
	collapsed map[int64][]int64 // keyed by courseID; single-user tests
	found     bool
	saved     [][]int64
	removed   [][]int64
}

func (m *mockThreadViewCache) SetCollapsed(ctx context.Context, userID, courseID, commentID int64, collapsed bool) error {
	return nil
}

func (m *mockThreadViewCache) GetCollapsed(ctx context.Context, userID, courseID int64) ([]int64, bool, error) {
	if !m.found {
		return nil, false, nil
	}
	return m.collapsed[courseID], true, nil
}

func (m *mockThreadViewCache) SaveCollapsed(ctx context.Context, userID, courseID int64, commentIDs []int64) error {
	m.saved = append(m.saved, commentIDs)
	return nil
}

func (m *mockThreadViewCache) Remove(ctx context.Context, userID, courseID int64, commentIDs []int64) error {
	m.removed = append(m.removed, commentIDs)
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func enrolledCourseSetup() (*mockCourseRepository, *mockEnrollmentRepository) {
	courseRepo := &mockCourseRepository{
		existsFn: func(ctx context.Context, id int64) (bool, error) { return true, nil },
	}
	enrollmentRepo := &mockEnrollmentRepository{
		existsFn: func(ctx context.Context, userID, courseID int64) (bool, error) { return true, nil },
	}
	return courseRepo, enrollmentRepo
}

func fixtureComment(id int64, parentID *int64, createdUnix int64) model.Comment {
	return model.Comment{
		ID:        id,
		CourseID:  10,
		UserID:    1,
		Content:   "comment",
		ParentID:  parentID,
		CreatedAt: time.Unix(createdUnix, 0),
	}
}

// =============================================================================
// CREATE TESTS
// =============================================================================

func TestCommentService_Create_ContentValidation(t *testing.T) {
	courseRepo, enrollmentRepo := enrolledCourseSetup()
	svc := NewCommentService(&mockCommentRepository{}, courseRepo, enrollmentRepo, &mockUserRepository{}, nil, nil, &mockThreadViewCache{})

	_, err := svc.Create(context.Background(), 10, 1, model.CreateCommentRequest{Content: ""})
	if !errors.Is(err, model.ErrContentRequired) {
		t.Errorf("empty content: expected ErrContentRequired, got %v", err)
	}

	// Whitespace-only content is just as empty once trimmed
	_, err = svc.Create(context.Background(), 10, 1, model.CreateCommentRequest{Content: "   \t\n  "})
	if !errors.Is(err, model.ErrContentRequired) {
		t.Errorf("whitespace content: expected ErrContentRequired, got %v", err)
	}

	// Validation rejects before anything downstream runs
	if courseRepo.existsCalls != 0 {
		t.Errorf("course lookup ran %d times for invalid content, want 0", courseRepo.existsCalls)
	}

	long := make([]byte, model.MaxCommentLength+1)
	for i := range long {
		long[i] = 'a'
	}
	_, err = svc.Create(context.Background(), 10, 1, model.CreateCommentRequest{Content: string(long)})
	if !errors.Is(err, model.ErrContentTooLong) {
		t.Errorf("oversized content: expected ErrContentTooLong, got %v", err)
	}
}

func TestCommentService_Create_CourseNotFound(t *testing.T) {
	svc := NewCommentService(&mockCommentRepository{}, &mockCourseRepository{}, &mockEnrollmentRepository{}, &mockUserRepository{}, nil, nil, &mockThreadViewCache{})

	_, err := svc.Create(context.Background(), 10, 1, model.CreateCommentRequest{Content: "hello"})
	if !errors.Is(err, model.ErrCourseNotFound) {
		t.Errorf("expected ErrCourseNotFound, got %v", err)
	}
}

func TestCommentService_Create_RequiresEnrollment(t *testing.T) {
	courseRepo := &mockCourseRepository{
		existsFn: func(ctx context.Context, id int64) (bool, error) { return true, nil },
	}
	svc := NewCommentService(&mockCommentRepository{}, courseRepo, &mockEnrollmentRepository{}, &mockUserRepository{}, nil, nil, &mockThreadViewCache{})

	_, err := svc.Create(context.Background(), 10, 1, model.CreateCommentRequest{Content: "hello"})
	if !errors.Is(err, model.ErrNotEnrolled) {
		t.Errorf("expected ErrNotEnrolled, got %v", err)
	}
}

func TestCommentService_Create_ParentMustMatchCourse(t *testing.T) {
	courseRepo, enrollmentRepo := enrolledCourseSetup()
	commentRepo := &mockCommentRepository{
		getByIDFn: func(ctx context.Context, commentID int64) (*model.Comment, error) {
			return &model.Comment{ID: commentID, CourseID: 99}, nil // Different course
		},
	}
	svc := NewCommentService(commentRepo, courseRepo, enrollmentRepo, &mockUserRepository{}, nil, nil, &mockThreadViewCache{})

	parentID := int64(5)
	_, err := svc.Create(context.Background(), 10, 1, model.CreateCommentRequest{Content: "hello", ParentID: &parentID})
	if !errors.Is(err, model.ErrParentWrongCourse) {
		t.Errorf("expected ErrParentWrongCourse, got %v", err)
	}
}

func TestCommentService_Create_ParentNotFound(t *testing.T) {
	courseRepo, enrollmentRepo := enrolledCourseSetup()
	svc := NewCommentService(&mockCommentRepository{}, courseRepo, enrollmentRepo, &mockUserRepository{}, nil, nil, &mockThreadViewCache{})

	parentID := int64(5)
	_, err := svc.Create(context.Background(), 10, 1, model.CreateCommentRequest{Content: "hello", ParentID: &parentID})
	if !errors.Is(err, model.ErrCommentNotFound) {
		t.Errorf("expected ErrCommentNotFound, got %v", err)
	}
}

// =============================================================================
// DELETE TESTS
// =============================================================================

func TestCommentService_Delete_OnlyAuthorOrAdmin(t *testing.T) {
	commentRepo := &mockCommentRepository{
		getByIDFn: func(ctx context.Context, commentID int64) (*model.Comment, error) {
			return &model.Comment{ID: commentID, CourseID: 10, UserID: 1}, nil
		},
	}
	svc := NewCommentService(commentRepo, &mockCourseRepository{}, &mockEnrollmentRepository{}, &mockUserRepository{}, nil, nil, &mockThreadViewCache{})

	// Another user, not admin: rejected before any DB mutation
	err := svc.Delete(context.Background(), 100, 2, false)
	if !errors.Is(err, model.ErrNotCommentAuthor) {
		t.Errorf("expected ErrNotCommentAuthor, got %v", err)
	}
}

func TestCommentService_Delete_MissingComment(t *testing.T) {
	svc := NewCommentService(&mockCommentRepository{}, &mockCourseRepository{}, &mockEnrollmentRepository{}, &mockUserRepository{}, nil, nil, &mockThreadViewCache{})

	err := svc.Delete(context.Background(), 100, 1, false)
	if !errors.Is(err, model.ErrCommentNotFound) {
		t.Errorf("expected ErrCommentNotFound, got %v", err)
	}
}

func TestCommentService_Delete_ClearsCollapsedState(t *testing.T) {
	subtree := []int64{100, 101, 102}
	commentRepo := &mockCommentRepository{
		getByIDFn: func(ctx context.Context, commentID int64) (*model.Comment, error) {
			return &model.Comment{ID: commentID, CourseID: 10, UserID: 1}, nil
		},
		deleteFn: func(ctx context.Context, tx *sqlx.Tx, commentID int64) ([]int64, error) {
			return subtree, nil
		},
	}
	courseRepo := &mockCourseRepository{}
	viewCache := &mockThreadViewCache{}
	svc := NewCommentService(commentRepo, courseRepo, &mockEnrollmentRepository{}, &mockUserRepository{}, newTxDB(t), nil, viewCache)

	if err := svc.Delete(context.Background(), 100, 1, false); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	// Counter drops by the whole subtree, not just the root
	if len(courseRepo.commentCountDelta) != 1 || courseRepo.commentCountDelta[0] != -3 {
		t.Errorf("comment count deltas = %v, want [-3]", courseRepo.commentCountDelta)
	}

	// The deleter's stored collapse set loses every removed id, so a pruned
	// thread can't linger there until the TTL expires
	if len(viewCache.removed) != 1 {
		t.Fatalf("view cache Remove called %d times, want 1", len(viewCache.removed))
	}
	got := viewCache.removed[0]
	if len(got) != len(subtree) {
		t.Fatalf("removed ids = %v, want %v", got, subtree)
	}
	for i, id := range subtree {
		if got[i] != id {
			t.Errorf("removed[%d] = %d, want %d", i, got[i], id)
		}
	}
}

// =============================================================================
// THREAD TESTS
// =============================================================================

func threadFixture() []model.Comment {
	// Comment 1 (t=100) has a reply chain 1 <- 2 <- 3; comment 4 (t=400) is alone.
	p1 := int64(1)
	p2 := int64(2)
	return []model.Comment{
		fixtureComment(1, nil, 100),
		fixtureComment(2, &p1, 200),
		fixtureComment(3, &p2, 300),
		fixtureComment(4, nil, 400),
	}
}

func TestCommentService_GetThread_SeedsCollapsedOnFirstVisit(t *testing.T) {
	courseRepo, enrollmentRepo := enrolledCourseSetup()
	commentRepo := &mockCommentRepository{
		listByCourseIDFn: func(ctx context.Context, courseID int64) ([]model.Comment, error) {
			return threadFixture(), nil
		},
	}
	viewCache := &mockThreadViewCache{}
	svc := NewCommentService(commentRepo, courseRepo, enrollmentRepo, &mockUserRepository{}, nil, nil, viewCache)

	resp, err := svc.GetThread(context.Background(), 10, 1)
	if err != nil {
		t.Fatalf("GetThread: %v", err)
	}

	// Newest top-level comment first
	if len(resp.Comments) != 2 || resp.Comments[0].ID != 4 || resp.Comments[1].ID != 1 {
		t.Fatalf("unexpected forest shape: %+v", resp.Comments)
	}

	// Comments 1 and 2 have replies, so both start collapsed
	if len(resp.CollapsedThreads) != 2 || resp.CollapsedThreads[0] != 1 || resp.CollapsedThreads[1] != 2 {
		t.Errorf("collapsed = %v, want [1 2]", resp.CollapsedThreads)
	}

	// Seeded default was persisted for next visit
	if len(viewCache.saved) != 1 {
		t.Errorf("expected seeded state to be saved once, saved %d times", len(viewCache.saved))
	}

	// Top-level (2) + direct replies of top-level (1): deeper replies are
	// inside each thread's reply_count, not this total
	if resp.CommentCount != 3 {
		t.Errorf("comment count = %d, want 3", resp.CommentCount)
	}
}

func TestCommentService_GetThread_RestoresSavedState(t *testing.T) {
	courseRepo, enrollmentRepo := enrolledCourseSetup()
	commentRepo := &mockCommentRepository{
		listByCourseIDFn: func(ctx context.Context, courseID int64) ([]model.Comment, error) {
			return threadFixture(), nil
		},
	}
	// Saved state: only thread 2 collapsed, plus a stale id 99 that must be dropped
	viewCache := &mockThreadViewCache{
		found:     true,
		collapsed: map[int64][]int64{10: {2, 99}},
	}
	svc := NewCommentService(commentRepo, courseRepo, enrollmentRepo, &mockUserRepository{}, nil, nil, viewCache)

	resp, err := svc.GetThread(context.Background(), 10, 1)
	if err != nil {
		t.Fatalf("GetThread: %v", err)
	}

	if len(resp.CollapsedThreads) != 1 || resp.CollapsedThreads[0] != 2 {
		t.Errorf("collapsed = %v, want [2]", resp.CollapsedThreads)
	}
	if len(viewCache.saved) != 0 {
		t.Errorf("restore path should not overwrite saved state")
	}
}

func TestCommentService_SetCollapsed_LeafIsNoop(t *testing.T) {
	courseRepo, enrollmentRepo := enrolledCourseSetup()
	commentRepo := &mockCommentRepository{
		listByCourseIDFn: func(ctx context.Context, courseID int64) ([]model.Comment, error) {
			return threadFixture(), nil
		},
	}
	viewCache := &mockThreadViewCache{}
	svc := NewCommentService(commentRepo, courseRepo, enrollmentRepo, &mockUserRepository{}, nil, nil, viewCache)

	// Comment 4 has no replies: collapsing it succeeds silently without touching the cache
	if err := svc.SetCollapsed(context.Background(), 10, 1, 4, true); err != nil {
		t.Fatalf("SetCollapsed on leaf: %v", err)
	}

	// Unknown comment is an error
	err := svc.SetCollapsed(context.Background(), 10, 1, 99, true)
	if !errors.Is(err, model.ErrCommentNotFound) {
		t.Errorf("expected ErrCommentNotFound, got %v", err)
	}
}
