package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// RefreshRequest asks the worker to re-run the pipeline against the
// configured extract. It carries no data itself; the worker reads input
// paths from its own configuration.
type RefreshRequest struct {
	RequestID   string    `json:"request_id"`
	RequestedBy string    `json:"requested_by"`
	Reason      string    `json:"reason"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewRefreshRequest(requestedBy, reason string) *RefreshRequest {
	return &RefreshRequest{
		RequestID:   uuid.NewString(),
		RequestedBy: requestedBy,
		Reason:      reason,
		Timestamp:   time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RefreshRequest) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RefreshRequestFromJSON creates a message from JSON bytes
func RefreshRequestFromJSON(data []byte) (*RefreshRequest, error) {
	var msg RefreshRequest
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
