package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event represents an event stored in the outbox for reliable delivery. Rows
// are written in the same storage transaction as the state change they
// describe and published asynchronously by the Publisher.
type Event struct {
	ID            string          `bson:"_id" json:"id"`
	AggregateID   string          `bson:"aggregateId" json:"aggregateId"`
	AggregateType string          `bson:"aggregateType" json:"aggregateType"`
	EventType     string          `bson:"eventType" json:"eventType"`
	Topic         string          `bson:"topic" json:"topic"`
	Payload       json.RawMessage `bson:"payload" json:"payload"`
	CreatedAt     time.Time       `bson:"createdAt" json:"createdAt"`
	PublishedAt   *time.Time      `bson:"publishedAt,omitempty" json:"publishedAt,omitempty"`
	RetryCount    int             `bson:"retryCount" json:"retryCount"`
	LastError     string          `bson:"lastError,omitempty" json:"lastError,omitempty"`
	MaxRetries    int             `bson:"maxRetries" json:"maxRetries"`
}

// DomainEvent is the minimal contract an event must satisfy to be outboxed.
type DomainEvent interface {
	EventType() string
}

// NewEvent creates a new outbox event from a domain event
func NewEvent(aggregateID, aggregateType, topic string, event DomainEvent) (*Event, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.New().String(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     event.EventType(),
		Topic:         topic,
		Payload:       payload,
		CreatedAt:     time.Now().UTC(),
		RetryCount:    0,
		MaxRetries:    10,
	}, nil
}

// IsPublished checks if the event has been published
func (e *Event) IsPublished() bool {
	return e.PublishedAt != nil
}

// ShouldRetry checks if the event should be retried
func (e *Event) ShouldRetry() bool {
	return !e.IsPublished() && e.RetryCount < e.MaxRetries
}
