package messaging

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	EventDocumentCreated     = "cv.document.created"
	EventDocumentProcessed   = "cv.document.processed"
	EventDocumentFailed      = "cv.document.failed"
	EventDocumentReprocessed = "cv.document.reprocessed"
	EventDocumentDeleted     = "cv.document.deleted"
)

// Exchange names
const (
	ExchangeCVEvents = "cv.events"
)

// Event is the base event structure published to RabbitMQ
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given payload
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event data: %w", err)
	}

	return &Event{
		ID:            uuid.New().String(),
		Type:          eventType,
		Source:        source,
		CorrelationID: correlationID,
		Timestamp:     time.Now().UTC(),
		Data:          payload,
	}, nil
}

// UnmarshalData unmarshals the event payload into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}
