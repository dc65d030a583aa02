package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"budget/internal/core"
)

// MonthChangedMessage announces that a month record changed. It carries only
// the month key; consumers reload the state document to see the change.
type MonthChangedMessage struct {
	Month     core.MonthKey `json:"month"`
	Action    string        `json:"action"`
	Timestamp time.Time     `json:"timestamp"`
}

// NewMonthChangedMessage creates a message stamped with the current time
func NewMonthChangedMessage(month core.MonthKey, action string) *MonthChangedMessage {
	return &MonthChangedMessage{
		Month:     month,
		Action:    action,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *MonthChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// MonthChangedMessageFromJSON decodes a message and checks its month key.
func MonthChangedMessageFromJSON(data []byte) (*MonthChangedMessage, error) {
	var msg MonthChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if _, err := core.ParseMonthKey(string(msg.Month)); err != nil {
		return nil, fmt.Errorf("month changed message: %w", err)
	}
	return &msg, nil
}
