package amqp

import (
	"encoding/json"
	"time"
)

// ChangeMessage tells other instances that one record collection changed.
// It carries no record data; receivers re-read the store and refresh their
// live queries.
type ChangeMessage struct {
	Collection string    `json:"collection"`
	Origin     string    `json:"origin"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewChangeMessage(collection, origin string) *ChangeMessage {
	return &ChangeMessage{
		Collection: collection,
		Origin:     origin,
		Timestamp:  time.Now().UTC(),
	}
}

func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
