package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"akunting/internal/feed"

	"github.com/google/uuid"
)

// messageVersion is bumped when ChangeMessage changes incompatibly.
const messageVersion = 1

// ChangeMessage is the wire form of a feed.Event. It carries no record
// data; consumers refetch the collection it names.
type ChangeMessage struct {
	Version   int       `json:"v"`
	Kind      string    `json:"kind"`
	Op        string    `json:"op"`
	ID        uuid.UUID `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewChangeMessage(e feed.Event) *ChangeMessage {
	at := e.At
	if at.IsZero() {
		at = time.Now()
	}
	return &ChangeMessage{
		Version:   messageVersion,
		Kind:      string(e.Kind),
		Op:        string(e.Op),
		ID:        e.ID,
		Timestamp: at.UTC(),
	}
}

func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON decodes and checks a message body.
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Version != messageVersion {
		return nil, fmt.Errorf("unsupported message version %d", msg.Version)
	}
	if _, err := feed.ParseKind(msg.Kind); err != nil {
		return nil, err
	}
	switch feed.Op(msg.Op) {
	case feed.OpInsert, feed.OpUpdate, feed.OpDelete:
	default:
		return nil, fmt.Errorf("unknown op %q", msg.Op)
	}
	return &msg, nil
}

// Event converts the message back to a feed event.
func (m *ChangeMessage) Event() feed.Event {
	return feed.Event{
		Kind: feed.Kind(m.Kind),
		Op:   feed.Op(m.Op),
		ID:   m.ID,
		At:   m.Timestamp,
	}
}
