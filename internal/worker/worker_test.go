package worker_test

import (
	"context"
	"testing"

	"studenthub/internal/queue"
	"studenthub/internal/worker"
)

// =============================================================================
// Mock Implementations
// =============================================================================

// MockEnrollmentProvider simulates the enrollment repository.
type MockEnrollmentProvider struct {
	// enrolled maps courseID -> list of enrolled user IDs
	enrolled map[int64][]int64
}

func NewMockEnrollmentProvider() *MockEnrollmentProvider {
	return &MockEnrollmentProvider{
		enrolled: make(map[int64][]int64),
	}
}

func (m *MockEnrollmentProvider) Enroll(courseID, userID int64) {
	m.enrolled[courseID] = append(m.enrolled[courseID], userID)
}

func (m *MockEnrollmentProvider) GetEnrolledUserIDs(ctx context.Context, courseID int64) ([]int64, error) {
	return m.enrolled[courseID], nil
}

// createdNotification records a single CreateNotification call.
type createdNotification struct {
	UserID    int64
	ActorID   int64
	Type      string
	CourseID  *int64
	CommentID *int64
	FileID    *int64
}

// MockNotificationCreator records created notifications.
type MockNotificationCreator struct {
	created []createdNotification
}

func (m *MockNotificationCreator) CreateNotification(ctx context.Context, userID, actorID int64, notifType string, courseID, commentID, fileID *int64) error {
	m.created = append(m.created, createdNotification{
		UserID:    userID,
		ActorID:   actorID,
		Type:      notifType,
		CourseID:  courseID,
		CommentID: commentID,
		FileID:    fileID,
	})
	return nil
}

func (m *MockNotificationCreator) forUser(userID int64) []createdNotification {
	var out []createdNotification
	for _, n := range m.created {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

// MockLivePublisher records events pushed to course live channels.
type MockLivePublisher struct {
	published map[int64][]queue.ActivityEvent
}

func NewMockLivePublisher() *MockLivePublisher {
	return &MockLivePublisher{published: make(map[int64][]queue.ActivityEvent)}
}

func (m *MockLivePublisher) PublishCourseEvent(ctx context.Context, courseID int64, event queue.ActivityEvent) error {
	m.published[courseID] = append(m.published[courseID], event)
	return nil
}

// =============================================================================
// Handler Tests
// =============================================================================

func TestCommentCreatedFanOut(t *testing.T) {
	ctx := context.Background()

	enrollments := NewMockEnrollmentProvider()
	enrollments.Enroll(10, 1) // actor
	enrollments.Enroll(10, 2)
	enrollments.Enroll(10, 3)

	notifs := &MockNotificationCreator{}
	live := NewMockLivePublisher()
	h := worker.NewHandler(enrollments, notifs, live)

	event := queue.NewCommentCreatedEvent(100, 10, 1, nil, nil)
	if err := h.HandleEvent(ctx, event); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	// Actor gets nothing, the other two get course_comment
	if got := notifs.forUser(1); len(got) != 0 {
		t.Errorf("actor should not be notified, got %d notifications", len(got))
	}
	for _, userID := range []int64{2, 3} {
		got := notifs.forUser(userID)
		if len(got) != 1 {
			t.Fatalf("user %d: want 1 notification, got %d", userID, len(got))
		}
		if got[0].Type != "course_comment" {
			t.Errorf("user %d: want type course_comment, got %s", userID, got[0].Type)
		}
		if got[0].CommentID == nil || *got[0].CommentID != 100 {
			t.Errorf("user %d: wrong comment id", userID)
		}
	}

	// Live channel saw the insert
	if len(live.published[10]) != 1 {
		t.Errorf("want 1 live event for course 10, got %d", len(live.published[10]))
	}
}

func TestReplyNotifiesParentAuthorDirectly(t *testing.T) {
	ctx := context.Background()

	enrollments := NewMockEnrollmentProvider()
	enrollments.Enroll(10, 1) // actor
	enrollments.Enroll(10, 2) // parent author
	enrollments.Enroll(10, 3)

	notifs := &MockNotificationCreator{}
	live := NewMockLivePublisher()
	h := worker.NewHandler(enrollments, notifs, live)

	parentID := int64(50)
	parentAuthorID := int64(2)
	event := queue.NewCommentCreatedEvent(101, 10, 1, &parentID, &parentAuthorID)
	if err := h.HandleEvent(ctx, event); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	// Parent author gets exactly one notification, and it's a reply
	got := notifs.forUser(2)
	if len(got) != 1 {
		t.Fatalf("parent author: want 1 notification, got %d", len(got))
	}
	if got[0].Type != "reply" {
		t.Errorf("parent author: want type reply, got %s", got[0].Type)
	}

	// The third student still gets the aggregated course_comment
	got = notifs.forUser(3)
	if len(got) != 1 || got[0].Type != "course_comment" {
		t.Errorf("user 3: want one course_comment notification, got %+v", got)
	}
}

func TestReplyToOwnCommentNotNotified(t *testing.T) {
	ctx := context.Background()

	enrollments := NewMockEnrollmentProvider()
	enrollments.Enroll(10, 1)

	notifs := &MockNotificationCreator{}
	h := worker.NewHandler(enrollments, notifs, NewMockLivePublisher())

	// Actor replies to their own comment
	parentID := int64(50)
	parentAuthorID := int64(1)
	event := queue.NewCommentCreatedEvent(101, 10, 1, &parentID, &parentAuthorID)
	if err := h.HandleEvent(ctx, event); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	if len(notifs.created) != 0 {
		t.Errorf("want no notifications, got %d", len(notifs.created))
	}
}

func TestCommentDeletedGoesToLiveChannel(t *testing.T) {
	ctx := context.Background()

	notifs := &MockNotificationCreator{}
	live := NewMockLivePublisher()
	h := worker.NewHandler(NewMockEnrollmentProvider(), notifs, live)

	event := queue.NewCommentDeletedEvent(100, 10, 1, 4)
	if err := h.HandleEvent(ctx, event); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	if len(notifs.created) != 0 {
		t.Errorf("deletes should not create notifications, got %d", len(notifs.created))
	}
	published := live.published[10]
	if len(published) != 1 {
		t.Fatalf("want 1 live event, got %d", len(published))
	}
	if published[0].Type != queue.EventCommentDeleted || published[0].DeletedCount != 4 {
		t.Errorf("unexpected live event: %+v", published[0])
	}
}

func TestFileUploadedFanOut(t *testing.T) {
	ctx := context.Background()

	enrollments := NewMockEnrollmentProvider()
	enrollments.Enroll(10, 1) // uploader
	enrollments.Enroll(10, 2)

	notifs := &MockNotificationCreator{}
	live := NewMockLivePublisher()
	h := worker.NewHandler(enrollments, notifs, live)

	event := queue.NewFileUploadedEvent(7, 10, 1, "lecture-notes.pdf")
	if err := h.HandleEvent(ctx, event); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	got := notifs.forUser(2)
	if len(got) != 1 {
		t.Fatalf("user 2: want 1 notification, got %d", len(got))
	}
	if got[0].Type != "course_file" {
		t.Errorf("want type course_file, got %s", got[0].Type)
	}
	if got[0].FileID == nil || *got[0].FileID != 7 {
		t.Errorf("wrong file id in notification")
	}
	if len(notifs.forUser(1)) != 0 {
		t.Errorf("uploader should not be notified")
	}
	if len(live.published[10]) != 1 {
		t.Errorf("want 1 live event, got %d", len(live.published[10]))
	}
}
