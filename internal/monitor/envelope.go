package monitor

import (
	"time"

	"github.com/fleetvis-io/fleetvis/pkg/vda5050"
)

// Envelope is one decoded inbound message as it travels through the
// ingestion path. Message is the typed payload; for undecodable payloads it
// is a *vda5050.Unparsed and Raw still carries the UTF-8 text, so observers
// never lose a message.
type Envelope struct {
	Topic      string            `json:"topic"`
	Category   vda5050.Category  `json:"category"`
	AgvId      vda5050.AgvId     `json:"agvId"`
	Message    vda5050.Message   `json:"message,omitempty"`
	Raw        string            `json:"raw"`
	ReceivedAt time.Time         `json:"receivedAt"`
}
