package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// SnapshotCommittedMessage announces that a table snapshot was written.
// The worker reads the table itself; the message only names it.
type SnapshotCommittedMessage struct {
	Table     string    `json:"table"`
	Rows      int       `json:"rows"`
	Timestamp time.Time `json:"timestamp"`
}

func NewSnapshotCommittedMessage(table string, rows int) *SnapshotCommittedMessage {
	return &SnapshotCommittedMessage{
		Table:     table,
		Rows:      rows,
		Timestamp: time.Now().UTC(),
	}
}

func (m *SnapshotCommittedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SnapshotCommittedMessageFromJSON decodes a message; a message without a
// table name is rejected.
func SnapshotCommittedMessageFromJSON(data []byte) (*SnapshotCommittedMessage, error) {
	var msg SnapshotCommittedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Table == "" {
		return nil, errors.New("snapshot message without table")
	}
	return &msg, nil
}
