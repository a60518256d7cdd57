package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types for the activity stream
const (
	EventCommentCreated = "comment_created"
	EventCommentDeleted = "comment_deleted"
	EventFileUploaded   = "file_uploaded"
)

// Stream names
const (
	StreamActivity = "stream:activity"
)

// Consumer group name for activity workers
const (
	ConsumerGroupActivity = "activity_workers"
)

// ActivityEvent represents an event published to the activity stream.
// All course activity events share this structure.
type ActivityEvent struct {
	Type      string `json:"type"`      // EventCommentCreated, EventCommentDeleted, EventFileUploaded
	Timestamp int64  `json:"timestamp"` // Unix timestamp when event occurred

	ActorID  int64 `json:"actor_id"`
	CourseID int64 `json:"course_id"`

	// Comment events
	CommentID int64  `json:"comment_id,omitempty"`
	ParentID  *int64 `json:"parent_id,omitempty"`
	// ParentAuthorID is the author of the parent comment, set on replies so
	// the worker can create the reply notification without a DB round trip.
	ParentAuthorID *int64 `json:"parent_author_id,omitempty"`
	// DeletedCount is the subtree size removed by a cascade delete.
	DeletedCount int `json:"deleted_count,omitempty"`

	// File event
	FileID   int64  `json:"file_id,omitempty"`
	FileName string `json:"file_name,omitempty"`
}

// NewCommentCreatedEvent creates an event for a new comment or reply.
// Worker fans notifications out to enrolled students, and notifies the
// parent comment's author directly when the comment is a reply.
func NewCommentCreatedEvent(commentID, courseID, actorID int64, parentID, parentAuthorID *int64) ActivityEvent {
	return ActivityEvent{
		Type:           EventCommentCreated,
		Timestamp:      time.Now().Unix(),
		ActorID:        actorID,
		CourseID:       courseID,
		CommentID:      commentID,
		ParentID:       parentID,
		ParentAuthorID: parentAuthorID,
	}
}

// NewCommentDeletedEvent creates an event for a cascade delete.
// Worker republishes it to the course's live channel so open pages can
// prune the removed subtree.
func NewCommentDeletedEvent(commentID, courseID, actorID int64, deletedCount int) ActivityEvent {
	return ActivityEvent{
		Type:         EventCommentDeleted,
		Timestamp:    time.Now().Unix(),
		ActorID:      actorID,
		CourseID:     courseID,
		CommentID:    commentID,
		DeletedCount: deletedCount,
	}
}

// NewFileUploadedEvent creates an event for a course file upload.
// Worker fans notifications out to enrolled students.
func NewFileUploadedEvent(fileID, courseID, actorID int64, fileName string) ActivityEvent {
	return ActivityEvent{
		Type:      EventFileUploaded,
		Timestamp: time.Now().Unix(),
		ActorID:   actorID,
		CourseID:  courseID,
		FileID:    fileID,
		FileName:  fileName,
	}
}

// ToMap converts the event to a map for Redis XADD.
// Redis Streams store field-value pairs, so we serialize to JSON in a "data" field.
func (e ActivityEvent) ToMap() (map[string]interface{}, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return map[string]interface{}{
		"type": e.Type,
		"data": string(data),
	}, nil
}

// ParseActivityEvent parses an ActivityEvent from Redis stream message values.
func ParseActivityEvent(values map[string]interface{}) (ActivityEvent, error) {
	data, ok := values["data"].(string)
	if !ok {
		return ActivityEvent{}, fmt.Errorf("missing or invalid 'data' field")
	}

	var event ActivityEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return ActivityEvent{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return event, nil
}
