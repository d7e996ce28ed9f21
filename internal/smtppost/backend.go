package smtppost

import "context"

// Backend is the interface that message delivery backends must implement.
// A backend takes a Message, normalizes its payload, builds the envelope and
// hands both to whatever actually delivers mail.
type Backend interface {
	// Send delivers msg. It returns an *InvalidRequestError when the message
	// itself is unusable and a *SendError when delivery failed. It is safe to
	// call concurrently with distinct messages.
	Send(ctx context.Context, msg *Message) error

	// Name returns the human-readable name of this backend.
	Name() string
}
