package notify

import "context"

// Sender delivers a rendered reminder to one recipient. The recipient format
// depends on the transport.
type Sender interface {
	Send(ctx context.Context, recipient, subject, body string) error
	ValidRecipient(recipient string) bool
	Name() string
}
