package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// PriceTableRefreshedMessage announces that a new price table snapshot is
// available. Consumers drop their cached table and reload on next use.
type PriceTableRefreshedMessage struct {
	ID         string    `json:"id"`
	SnapshotID int64     `json:"snapshot_id"`
	Source     string    `json:"source"`
	Entries    int       `json:"entries"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewPriceTableRefreshedMessage(snapshotID int64, source string, entries int) *PriceTableRefreshedMessage {
	return &PriceTableRefreshedMessage{
		ID:         uuid.NewString(),
		SnapshotID: snapshotID,
		Source:     source,
		Entries:    entries,
		Timestamp:  time.Now().UTC(),
	}
}

func (m *PriceTableRefreshedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func PriceTableRefreshedMessageFromJSON(data []byte) (*PriceTableRefreshedMessage, error) {
	var msg PriceTableRefreshedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
