// Package mailer implements the Backend that delivers messages through a
// real transport.
package mailer

import (
	"context"
	"log/slog"

	"github.com/shineum/smtp-post/internal/convert"
	"github.com/shineum/smtp-post/internal/parser"
	"github.com/shineum/smtp-post/internal/smtppost"
	"github.com/shineum/smtp-post/internal/transport"
)

// Option configures a Backend.
type Option func(*Backend)

// WithConverter makes the backend parse every payload and submit the
// re-composed message instead of the raw data.
func WithConverter(c *convert.Converter) Option {
	return func(b *Backend) {
		b.converter = c
	}
}

// Backend normalizes the payload, validates the envelope and hands both to a
// transport.
type Backend struct {
	transport transport.Transport
	converter *convert.Converter
}

// New creates a Backend sending through t.
func New(t transport.Transport, opts ...Option) *Backend {
	b := &Backend{transport: t}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns the backend name.
func (b *Backend) Name() string {
	return "mailer"
}

// Send delivers msg. The payload is read before the envelope is validated so
// a stream is released even when an address is bad. The transport is called
// at most once.
func (b *Backend) Send(ctx context.Context, msg *smtppost.Message) error {
	data, err := msg.Payload()
	if err != nil {
		return err
	}

	env, err := msg.Envelope()
	if err != nil {
		return err
	}

	if b.converter != nil {
		if data, err = b.recompose(data); err != nil {
			return err
		}
	}

	if err := b.transport.Send(ctx, env, data); err != nil {
		return &smtppost.SendError{
			Backend: b.Name() + "/" + b.transport.Name(),
			From:    env.From(),
			To:      env.To(),
			Err:     err,
		}
	}

	slog.Debug("message sent",
		"backend", b.Name(),
		"transport", b.transport.Name(),
		"from", env.From(),
		"to", env.To(),
		"size", len(data),
	)
	return nil
}

// recompose parses data and renders it again through the converter.
func (b *Backend) recompose(data []byte) ([]byte, error) {
	parsed, err := parser.Parse(data)
	if err != nil {
		return nil, &smtppost.InvalidRequestError{
			Message: "cannot parse message data",
			Code:    smtppost.CodeUnparsable,
			Err:     err,
		}
	}

	out, err := b.converter.Message(parsed).Bytes()
	if err != nil {
		return nil, &smtppost.InvalidRequestError{
			Message: "cannot compose message data",
			Code:    smtppost.CodeUnparsable,
			Err:     err,
		}
	}
	return out, nil
}
