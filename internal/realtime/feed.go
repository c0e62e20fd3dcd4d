// Package realtime publishes issue lifecycle events over Redis pub/sub so
// the officer dashboard updates without polling.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/civicai/civicai/internal/issues"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// EventType labels what happened to an issue.
type EventType string

const (
	EventIssueCreated       EventType = "issue.created"
	EventIssueUpdated       EventType = "issue.updated"
	EventIssueStatusChanged EventType = "issue.status_changed"
)

// Event is one issue lifecycle notification.
type Event struct {
	Type      EventType     `json:"type"`
	Issue     *issues.Issue `json:"issue"`
	Timestamp time.Time     `json:"timestamp"`
}

// Feed publishes and subscribes to issue events on one Redis channel.
type Feed struct {
	client  *redis.Client
	channel string
}

// New creates a Feed over the given Redis server.
func New(addr, password, channel string) *Feed {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	return &Feed{client: client, channel: channel}
}

// NewWithClient wraps an existing Redis client, used by tests.
func NewWithClient(client *redis.Client, channel string) *Feed {
	return &Feed{client: client, channel: channel}
}

// Ping verifies the Redis connection.
func (f *Feed) Ping(ctx context.Context) error {
	if err := f.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("pinging redis: %w", err)
	}
	return nil
}

// Close releases the underlying Redis client.
func (f *Feed) Close() error {
	return f.client.Close()
}

// Publish sends one issue event. Publishing is best-effort from the caller's
// perspective: a dead feed must not fail the write that triggered it, so
// errors are logged and returned for the caller to ignore or count.
func (f *Feed) Publish(ctx context.Context, eventType EventType, issue *issues.Issue) error {
	event := Event{
		Type:      eventType,
		Issue:     issue,
		Timestamp: time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}

	if err := f.client.Publish(ctx, f.channel, payload).Err(); err != nil {
		log.Warn().
			Err(err).
			Str("event", string(eventType)).
			Msg("Failed to publish issue event")
		return fmt.Errorf("publishing event: %w", err)
	}

	log.Debug().
		Str("event", string(eventType)).
		Str("issue_id", issue.ID.String()).
		Msg("Issue event published")
	return nil
}

// Subscribe delivers decoded events to handler until ctx is cancelled.
// Undecodable payloads are logged and skipped.
func (f *Feed) Subscribe(ctx context.Context, handler func(Event)) error {
	sub := f.client.Subscribe(ctx, f.channel)
	defer sub.Close()

	// Confirm the subscription before reading.
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribing to %s: %w", f.channel, err)
	}

	ch := sub.Channel()
	log.Info().Str("channel", f.channel).Msg("Subscribed to issue feed")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("subscription channel closed")
			}
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Warn().Err(err).Msg("Skipping undecodable issue event")
				continue
			}
			handler(event)
		}
	}
}
