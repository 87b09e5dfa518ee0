package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// RecordKind names the record type a change event refers to.
type RecordKind string

const (
	KindExpense      RecordKind = "expense"
	KindIndirectCost RecordKind = "indirect_cost"
)

// Operation is what happened to the record.
type Operation string

const (
	OpCreated       Operation = "created"
	OpUpdated       Operation = "updated"
	OpStatusChanged Operation = "status_changed"
	OpDeleted       Operation = "deleted"
)

var ErrInvalidMessage = errors.New("invalid record changed message")

// RecordChangedMessage is a lightweight notification that a record changed.
// It carries only identity and version; consumers reload whatever they need.
type RecordChangedMessage struct {
	Kind      RecordKind `json:"kind"`
	ID        string     `json:"id"`
	Op        Operation  `json:"op"`
	Version   int64      `json:"version"`
	Timestamp time.Time  `json:"timestamp"`
}

// NewRecordChangedMessage stamps the message with the current time.
func NewRecordChangedMessage(kind RecordKind, id string, op Operation, version int64) *RecordChangedMessage {
	return &RecordChangedMessage{
		Kind:      kind,
		ID:        id,
		Op:        op,
		Version:   version,
		Timestamp: time.Now(),
	}
}

func (m *RecordChangedMessage) Validate() error {
	switch m.Kind {
	case KindExpense, KindIndirectCost:
	default:
		return fmt.Errorf("%w: kind %q", ErrInvalidMessage, m.Kind)
	}
	switch m.Op {
	case OpCreated, OpUpdated, OpStatusChanged, OpDeleted:
	default:
		return fmt.Errorf("%w: op %q", ErrInvalidMessage, m.Op)
	}
	if m.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidMessage)
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m *RecordChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecordChangedMessageFromJSON decodes and validates a message.
func RecordChangedMessageFromJSON(data []byte) (*RecordChangedMessage, error) {
	var msg RecordChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
