package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/jmoiron/sqlx"

	"studenthub/internal/cache"
	"studenthub/internal/model"
	"studenthub/internal/queue"
	"studenthub/internal/repository"
	"studenthub/internal/thread"
)

// CommentThreadResponse is the payload for a course's comment section: the
// reply forest plus the view state the client should start from.
type CommentThreadResponse struct {
	Comments []*thread.Node `json:"comments"`
	// CommentCount is top-level comments plus their direct replies. Deeper
	// replies show up inside each thread's own reply_count instead.
	CommentCount int `json:"comment_count"`
	// CollapsedThreads lists the threads the viewer currently has collapsed.
	CollapsedThreads []int64 `json:"collapsed_threads"`
}

type CommentService struct {
	commentRepo    repository.CommentRepository
	courseRepo     repository.CourseRepository
	enrollmentRepo repository.EnrollmentRepository
	userRepo       repository.UserRepository
	db             *sqlx.DB
	publisher      queue.Publisher
	viewCache      cache.ThreadViewCache
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	courseRepo repository.CourseRepository,
	enrollmentRepo repository.EnrollmentRepository,
	userRepo repository.UserRepository,
	db *sqlx.DB,
	publisher queue.Publisher,
	viewCache cache.ThreadViewCache,
) *CommentService {
	return &CommentService{
		commentRepo:    commentRepo,
		courseRepo:     courseRepo,
		enrollmentRepo: enrollmentRepo,
		userRepo:       userRepo,
		db:             db,
		publisher:      publisher,
		viewCache:      viewCache,
	}
}

// Create adds a comment or reply to a course page. Uses transaction: insert
// comment + increment counter. Replies nest to arbitrary depth.
func (s *CommentService) Create(ctx context.Context, courseID, userID int64, req model.CreateCommentRequest) (*model.Comment, error) {
	// Validate content. Whitespace-only posts are rejected here, before any
	// store call is made.
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, model.ErrContentRequired
	}
	if len(content) > model.MaxCommentLength {
		return nil, model.ErrContentTooLong
	}

	// Verify course exists
	exists, err := s.courseRepo.Exists(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("check course exists: %w", err)
	}
	if !exists {
		return nil, model.ErrCourseNotFound
	}

	// Only enrolled students can comment
	enrolled, err := s.enrollmentRepo.Exists(ctx, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("check enrollment: %w", err)
	}
	if !enrolled {
		return nil, model.ErrNotEnrolled
	}

	// If parent comment provided, verify it exists and belongs to same course
	var parentAuthorID *int64
	if req.ParentID != nil {
		parent, err := s.commentRepo.GetByID(ctx, *req.ParentID)
		if err != nil {
			return nil, err // ErrCommentNotFound or wrapped error
		}
		if parent.CourseID != courseID {
			return nil, model.ErrParentWrongCourse
		}
		parentAuthorID = &parent.UserID
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	comment, err := s.commentRepo.Create(ctx, tx, courseID, userID, content, req.ParentID)
	if err != nil {
		return nil, err
	}

	if err := s.courseRepo.IncrementCommentCount(ctx, tx, courseID, 1); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	// Fetch author info
	author, err := s.userRepo.GetByID(ctx, userID)
	if err == nil {
		comment.Author = &model.UserSummary{
			ID:          author.ID,
			Username:    author.Username,
			Email:       author.Email,
			DisplayName: author.DisplayName,
			AvatarURL:   author.AvatarURL,
		}
	}

	log.Printf("[CommentService] User %d commented on course %d (parent=%v)", userID, courseID, req.ParentID)

	// Publish activity event (after commit, best-effort)
	if s.publisher != nil {
		event := queue.NewCommentCreatedEvent(comment.ID, courseID, userID, req.ParentID, parentAuthorID)
		if _, err := s.publisher.Publish(ctx, queue.StreamActivity, event); err != nil {
			log.Printf("[CommentService] Failed to publish CommentCreated event: %v", err)
		}
	}

	return comment, nil
}

// Delete removes a comment and its entire reply subtree. Only the comment's
// author or an admin may delete it. Uses transaction: cascade delete +
// decrement counter by the subtree size.
func (s *CommentService) Delete(ctx context.Context, commentID, userID int64, isAdmin bool) error {
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.UserID != userID && !isAdmin {
		return model.ErrNotCommentAuthor
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	deletedIDs, err := s.commentRepo.Delete(ctx, tx, commentID)
	if err != nil {
		return err
	}

	if err := s.courseRepo.IncrementCommentCount(ctx, tx, comment.CourseID, -len(deletedIDs)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	log.Printf("[CommentService] User %d deleted comment %d from course %d (removed=%d)",
		userID, commentID, comment.CourseID, len(deletedIDs))

	// Drop the pruned subtree from the deleter's persisted collapse set so
	// the stored ids don't outlive the comments (best-effort, after commit).
	if err := s.viewCache.Remove(ctx, userID, comment.CourseID, deletedIDs); err != nil {
		log.Printf("[CommentService] Delete: view cache cleanup failed: %v", err)
	}

	if s.publisher != nil {
		event := queue.NewCommentDeletedEvent(commentID, comment.CourseID, userID, len(deletedIDs))
		if _, err := s.publisher.Publish(ctx, queue.StreamActivity, event); err != nil {
			log.Printf("[CommentService] Failed to publish CommentDeleted event: %v", err)
		}
	}

	return nil
}

// GetThread returns the full comment tree for a course along with the
// viewer's collapsed-thread state. The tree is rebuilt from the flat list on
// every fetch; a fetch that lands after an insert wins over stale state.
func (s *CommentService) GetThread(ctx context.Context, courseID, userID int64) (*CommentThreadResponse, error) {
	exists, err := s.courseRepo.Exists(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("check course exists: %w", err)
	}
	if !exists {
		return nil, model.ErrCourseNotFound
	}

	comments, err := s.commentRepo.ListByCourseID(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}

	forest := thread.Build(comments)

	// Seed always runs: it collapses every thread that has replies and
	// rebuilds the leaf bookkeeping Restore depends on. Saved state then
	// overwrites the seeded default, dropping any ids deleted since.
	state := thread.NewViewState()
	state.Seed(forest)

	saved, found, err := s.viewCache.GetCollapsed(ctx, userID, courseID)
	if err != nil {
		log.Printf("[CommentService] GetThread: view cache read failed, using defaults: %v", err)
		found = false
	}
	if found {
		state.Restore(saved)
	} else if err := s.viewCache.SaveCollapsed(ctx, userID, courseID, state.CollapsedIDs()); err != nil {
		log.Printf("[CommentService] GetThread: view cache seed failed: %v", err)
	}

	return &CommentThreadResponse{
		Comments:         forest,
		CommentCount:     thread.TotalCount(forest),
		CollapsedThreads: state.CollapsedIDs(),
	}, nil
}

// SetCollapsed persists a single thread's collapsed state for the viewer.
// Collapsing a leaf is a no-op.
func (s *CommentService) SetCollapsed(ctx context.Context, courseID, userID, commentID int64, collapsed bool) error {
	comments, err := s.commentRepo.ListByCourseID(ctx, courseID)
	if err != nil {
		return fmt.Errorf("list comments: %w", err)
	}

	forest := thread.Build(comments)
	node := thread.Find(forest, commentID)
	if node == nil {
		return model.ErrCommentNotFound
	}
	if len(node.Replies) == 0 {
		// Leaves have nothing to collapse
		return nil
	}

	return s.viewCache.SetCollapsed(ctx, userID, courseID, commentID, collapsed)
}
