// Package notify delivers card lifecycle events to the communication
// subsystem. Publishing is fire-and-forget: Emit only queues the event and a
// background worker hands it to a Sink, so delivery outcomes never reach the
// operation that triggered them.
package notify

import "context"

// Channel names are the sole event-kind discriminator on the transport.
const (
	ChannelCardCreated = "card_created"
	ChannelCardUpdated = "card_updated"
	ChannelCardDeleted = "card_deleted"
)

// Channels lists every channel the service publishes to.
var Channels = []string{ChannelCardCreated, ChannelCardUpdated, ChannelCardDeleted}

// EventPayload is the wire contract shared by all three channels.
type EventPayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ShareLink   string `json:"shareLink"`
	Attribute   string `json:"attribute"`
}

// Sink performs the actual delivery of one event. Implementations may block.
type Sink interface {
	Deliver(ctx context.Context, channel string, payload EventPayload) error
}
