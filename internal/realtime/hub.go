package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"studenthub/internal/queue"
)

const (
	// CourseChannelPrefix is the Pub/Sub channel prefix for course live feeds
	CourseChannelPrefix = "live:course:"

	// subscriberBuffer is the per-subscriber event buffer. A subscriber that
	// falls this far behind starts dropping events; the page resyncs on the
	// next full fetch anyway.
	subscriberBuffer = 16
)

// Hub fans course activity out to connected pages over Redis Pub/Sub.
// Publishing goes through Redis so every server instance sees every event.
type Hub struct {
	client *redis.Client
}

// NewHub creates a Hub backed by Redis Pub/Sub.
func NewHub(client *redis.Client) *Hub {
	return &Hub{client: client}
}

// courseChannel returns the Pub/Sub channel name for a course.
func courseChannel(courseID int64) string {
	return fmt.Sprintf("%s%d", CourseChannelPrefix, courseID)
}

// PublishCourseEvent pushes an event to every subscriber of a course page.
func (h *Hub) PublishCourseEvent(ctx context.Context, courseID int64, event queue.ActivityEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal live event: %w", err)
	}

	channel := courseChannel(courseID)
	receivers, err := h.client.Publish(ctx, channel, payload).Result()
	if err != nil {
		log.Printf("[Hub] Publish FAILED: course=%d type=%s err=%v", courseID, event.Type, err)
		return fmt.Errorf("publish live event: %w", err)
	}

	log.Printf("[Hub] Publish OK: course=%d type=%s receivers=%d", courseID, event.Type, receivers)
	return nil
}

// Subscribe opens a live event channel for a course. The returned cancel
// function must be called when the client disconnects. Events arriving
// while the subscriber's buffer is full are dropped.
func (h *Hub) Subscribe(ctx context.Context, courseID int64) (<-chan queue.ActivityEvent, func(), error) {
	channel := courseChannel(courseID)
	pubsub := h.client.Subscribe(ctx, channel)

	// Confirm the subscription before handing the channel out
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		log.Printf("[Hub] Subscribe FAILED: course=%d err=%v", courseID, err)
		return nil, nil, fmt.Errorf("subscribe to course channel: %w", err)
	}

	events := make(chan queue.ActivityEvent, subscriberBuffer)

	go func() {
		defer close(events)
		for msg := range pubsub.Channel() {
			var event queue.ActivityEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Printf("[Hub] Subscribe parse error: course=%d err=%v", courseID, err)
				continue
			}
			select {
			case events <- event:
			default:
				log.Printf("[Hub] Subscribe: course=%d subscriber slow, dropping type=%s", courseID, event.Type)
			}
		}
	}()

	cancel := func() {
		pubsub.Close()
	}

	log.Printf("[Hub] Subscribe OK: course=%d channel=%s", courseID, channel)
	return events, cancel, nil
}
