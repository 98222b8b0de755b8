package changefeed

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

const Channel = "order_changes"

type EventType string

const (
	EventInsert EventType = "insert"
	EventUpdate EventType = "update"
	EventDelete EventType = "delete"
)

// Event is one row-level change notification on the orders table.
type Event struct {
	Type      EventType  `json:"eventType"`
	Table     string     `json:"table"`
	OrderID   string     `json:"orderId"`
	CourierID *string    `json:"courierId,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

var ErrEmptyPayload = errors.New("changefeed: empty payload")

// ParseEvent decodes a NOTIFY payload. Ids may arrive as JSON numbers or strings.
func ParseEvent(payload string) (Event, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return Event{}, ErrEmptyPayload
	}

	var raw struct {
		Type      string          `json:"eventType"`
		Table     string          `json:"table"`
		OrderID   json.RawMessage `json:"orderId"`
		CourierID json.RawMessage `json:"courierId"`
		UpdatedAt *time.Time      `json:"updatedAt"`
	}
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return Event{}, err
	}

	evt := Event{
		Type:      EventType(strings.ToLower(strings.TrimSpace(raw.Type))),
		Table:     raw.Table,
		OrderID:   rawID(raw.OrderID),
		UpdatedAt: raw.UpdatedAt,
	}
	if courier := rawID(raw.CourierID); courier != "" {
		evt.CourierID = &courier
	}
	if evt.OrderID == "" {
		return Event{}, errors.New("changefeed: event without orderId")
	}
	switch evt.Type {
	case EventInsert, EventUpdate, EventDelete:
	default:
		evt.Type = EventUpdate
	}
	return evt, nil
}

// Concerns reports whether the event touches the given courier; an empty
// courier id matches everything.
func (e Event) Concerns(courierID string) bool {
	courierID = strings.TrimSpace(courierID)
	if courierID == "" {
		return true
	}
	return e.CourierID != nil && *e.CourierID == courierID
}

func rawID(raw json.RawMessage) string {
	text := strings.TrimSpace(string(raw))
	if text == "" || text == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return text
}
