package telemetry

import (
	"encoding/json"
	"time"
)

// Event is one telemetry record. It is serialized as JSON onto Kafka and
// forwarded to Loki by the worker; the same shape is emitted as OTel log records.
// Events never carry plaintext codes, passwords or tokens.
type Event struct {
	EventType string          `json:"eventType"`
	Source    string          `json:"source"`
	UserID    string          `json:"userId,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// NewEvent returns an Event stamped with the current UTC time. meta is
// marshaled to JSON; a marshal failure leaves Metadata empty.
func NewEvent(eventType, source, userID string, meta any) *Event {
	e := &Event{EventType: eventType, Source: source, UserID: userID, CreatedAt: time.Now().UTC()}
	if meta != nil {
		if b, err := json.Marshal(meta); err == nil {
			e.Metadata = b
		}
	}
	return e
}
