package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"studenthub/internal/queue"
)

// EnrollmentProvider defines the interface for fetching enrolled students.
// This abstracts the repository layer so workers don't depend on DB directly.
type EnrollmentProvider interface {
	// GetEnrolledUserIDs returns all user IDs enrolled in a course.
	GetEnrolledUserIDs(ctx context.Context, courseID int64) ([]int64, error)
}

// NotificationCreator defines the interface for creating notifications.
// This allows the worker to create notifications without depending on the service directly.
type NotificationCreator interface {
	// CreateNotification creates a notification row.
	CreateNotification(ctx context.Context, userID, actorID int64, notifType string, courseID, commentID, fileID *int64) error
}

// LivePublisher pushes events onto a course's live channel so open course
// pages receive inserts and deletes without polling.
type LivePublisher interface {
	PublishCourseEvent(ctx context.Context, courseID int64, event queue.ActivityEvent) error
}

// EmailNotifier sends an email for a reply notification.
type EmailNotifier interface {
	SendReplyEmail(ctx context.Context, recipientID, actorID, commentID int64) error
}

// Handler processes activity events from the queue.
type Handler struct {
	enrollments  EnrollmentProvider
	notifCreator NotificationCreator
	live         LivePublisher
	emailer      EmailNotifier // Can be nil if email not wired
}

// NewHandler creates a new event handler.
func NewHandler(
	enrollments EnrollmentProvider,
	notifCreator NotificationCreator,
	live LivePublisher,
) *Handler {
	return &Handler{
		enrollments:  enrollments,
		notifCreator: notifCreator,
		live:         live,
	}
}

// SetEmailNotifier sets the email notifier (optional, for reply emails).
func (h *Handler) SetEmailNotifier(e EmailNotifier) {
	h.emailer = e
}

// HandleEvent routes an event to the appropriate handler based on type.
func (h *Handler) HandleEvent(ctx context.Context, event queue.ActivityEvent) error {
	startTime := time.Now()
	var err error

	switch event.Type {
	case queue.EventCommentCreated:
		err = h.handleCommentCreated(ctx, event)
	case queue.EventCommentDeleted:
		err = h.handleCommentDeleted(ctx, event)
	case queue.EventFileUploaded:
		err = h.handleFileUploaded(ctx, event)
	default:
		log.Printf("[Worker] Unknown event type: %s", event.Type)
		return fmt.Errorf("unknown event type: %s", event.Type)
	}

	if err != nil {
		log.Printf("[Worker] HandleEvent FAILED: type=%s duration=%v err=%v",
			event.Type, time.Since(startTime), err)
		return err
	}

	log.Printf("[Worker] HandleEvent OK: type=%s duration=%v", event.Type, time.Since(startTime))
	return nil
}

// handleCommentCreated pushes the insert to the course's live channel, then
// creates notifications: a direct one for the parent author when the comment
// is a reply, and aggregated course activity for everyone else enrolled.
func (h *Handler) handleCommentCreated(ctx context.Context, event queue.ActivityEvent) error {
	log.Printf("[Worker] CommentCreated: comment=%d course=%d actor=%d", event.CommentID, event.CourseID, event.ActorID)

	// Live channel first: open pages should see the insert promptly
	if err := h.live.PublishCourseEvent(ctx, event.CourseID, event); err != nil {
		log.Printf("[Worker] CommentCreated: live publish failed err=%v", err)
		// Notifications still go out
	}

	courseID := event.CourseID
	commentID := event.CommentID

	// Direct reply notification for the parent comment's author
	if event.ParentAuthorID != nil && *event.ParentAuthorID != event.ActorID {
		err := h.notifCreator.CreateNotification(ctx, *event.ParentAuthorID, event.ActorID, "reply", &courseID, &commentID, nil)
		if err != nil {
			log.Printf("[Worker] CommentCreated: failed to create reply notification: %v", err)
		} else {
			log.Printf("[Worker] CommentCreated: reply notification created for user=%d", *event.ParentAuthorID)

			if h.emailer != nil {
				if err := h.emailer.SendReplyEmail(ctx, *event.ParentAuthorID, event.ActorID, event.CommentID); err != nil {
					log.Printf("[Worker] CommentCreated: reply email failed: %v", err)
				}
			}
		}
	}

	// Fan out aggregated course activity to the rest of the roster
	enrolled, err := h.enrollments.GetEnrolledUserIDs(ctx, event.CourseID)
	if err != nil {
		return fmt.Errorf("get enrolled users: %w", err)
	}

	log.Printf("[Worker] CommentCreated: fanning out to %d enrolled students", len(enrolled))

	var failCount int
	for _, userID := range enrolled {
		if userID == event.ActorID {
			continue // Don't notify the commenter about their own comment
		}
		if event.ParentAuthorID != nil && userID == *event.ParentAuthorID {
			continue // Parent author already got the direct reply notification
		}

		err := h.notifCreator.CreateNotification(ctx, userID, event.ActorID, "course_comment", &courseID, &commentID, nil)
		if err != nil {
			log.Printf("[Worker] CommentCreated: failed to notify user=%d err=%v", userID, err)
			failCount++
			// Continue with other students - don't fail entire fan-out
		}
	}

	log.Printf("[Worker] CommentCreated DONE: comment=%d fanout=%d failed=%d",
		event.CommentID, len(enrolled), failCount)

	return nil
}

// handleCommentDeleted republishes the cascade delete to the course's live
// channel. Notifications referencing the deleted rows go away with the rows
// themselves, so nothing to clean up here.
func (h *Handler) handleCommentDeleted(ctx context.Context, event queue.ActivityEvent) error {
	log.Printf("[Worker] CommentDeleted: comment=%d course=%d removed=%d", event.CommentID, event.CourseID, event.DeletedCount)

	if err := h.live.PublishCourseEvent(ctx, event.CourseID, event); err != nil {
		return fmt.Errorf("live publish: %w", err)
	}

	log.Printf("[Worker] CommentDeleted DONE: comment=%d", event.CommentID)
	return nil
}

// handleFileUploaded notifies enrolled students about a new course file.
func (h *Handler) handleFileUploaded(ctx context.Context, event queue.ActivityEvent) error {
	log.Printf("[Worker] FileUploaded: file=%d course=%d actor=%d", event.FileID, event.CourseID, event.ActorID)

	if err := h.live.PublishCourseEvent(ctx, event.CourseID, event); err != nil {
		log.Printf("[Worker] FileUploaded: live publish failed err=%v", err)
	}

	enrolled, err := h.enrollments.GetEnrolledUserIDs(ctx, event.CourseID)
	if err != nil {
		return fmt.Errorf("get enrolled users: %w", err)
	}

	log.Printf("[Worker] FileUploaded: fanning out to %d enrolled students", len(enrolled))

	courseID := event.CourseID
	fileID := event.FileID

	var failCount int
	for _, userID := range enrolled {
		if userID == event.ActorID {
			continue
		}

		err := h.notifCreator.CreateNotification(ctx, userID, event.ActorID, "course_file", &courseID, nil, &fileID)
		if err != nil {
			log.Printf("[Worker] FileUploaded: failed to notify user=%d err=%v", userID, err)
			failCount++
		}
	}

	log.Printf("[Worker] FileUploaded DONE: file=%d fanout=%d failed=%d",
		event.FileID, len(enrolled), failCount)

	return nil
}
