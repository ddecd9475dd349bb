package history

import "time"

// Delivery statuses
const (
	StatusAccepted = "accepted" // authenticated, decoded and dispatched
	StatusRejected = "rejected" // refused with a 4xx
	StatusFailed   = "failed"   // a handler returned an error
)

// DeliveryRecord represents a single pipeline outcome in the database
type DeliveryRecord struct {
	ID            int64     `json:"id"`
	DeliveryID    string    `json:"delivery_id"`
	Source        string    `json:"source"` // github, travis
	Event         string    `json:"event"`  // wire string, empty when unclassified
	Repo          string    `json:"repo"`   // owner/name, empty when unauthenticated
	Status        string    `json:"status"`
	HTTPStatus    int       `json:"http_status"`
	Reason        *string   `json:"reason,omitempty"`         // nullable
	PayloadDigest *string   `json:"payload_digest,omitempty"` // nullable
	ReceivedAt    time.Time `json:"received_at"`
}
