// Package transport defines how a backend hands an envelope and rendered
// message data to a delivery service.
package transport

import (
	"context"

	"github.com/shineum/smtp-post/internal/smtppost"
)

// Transport delivers rendered message data to the envelope recipients. It
// does not inspect or modify data.
type Transport interface {
	// Send submits data once. A deadline on ctx bounds the whole
	// submission.
	Send(ctx context.Context, env *smtppost.Envelope, data []byte) error

	// Name returns the human-readable name of this transport.
	Name() string
}
