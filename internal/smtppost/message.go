// Package smtppost holds the request-side model of the mail relay: the message
// handed to a backend, its envelope, the backend contract and the two error
// kinds a send can fail with.
package smtppost

import (
	"errors"
	"io"
	"sync"
)

var errNoSeeker = errors.New("stream does not support seeking")

// Message is a single send request: the envelope strings as supplied by the
// caller and the raw message data, either buffered or as a stream.
//
// The fields set at construction never change. A stream is read once, on
// the first Payload call, and every later or concurrent call gets the same
// result.
type Message struct {
	from string
	to   []string

	data   []byte
	stream io.Reader

	once       sync.Once
	payload    []byte
	payloadErr error
}

// NewMessage returns a message carrying buffered data.
func NewMessage(from string, to []string, data []byte) *Message {
	if data == nil {
		data = []byte{}
	}
	return &Message{from: from, to: copyStrings(to), data: data}
}

// NewStreamMessage returns a message whose data is read from r on send. r is
// rewound first, so it must implement io.Seeker; if it implements io.Closer
// it is closed once read.
func NewStreamMessage(from string, to []string, r io.Reader) *Message {
	return &Message{from: from, to: copyStrings(to), stream: r}
}

// From returns the sender as supplied by the caller.
func (m *Message) From() string { return m.from }

// To returns the recipients as supplied by the caller.
func (m *Message) To() []string { return copyStrings(m.to) }

// IsStream reports whether the data was supplied as a stream.
func (m *Message) IsStream() bool { return m.stream != nil }

// Envelope validates the sender and recipients.
func (m *Message) Envelope() (*Envelope, error) {
	return NewEnvelope(m.from, m.to)
}

// Payload returns the message data. A stream is rewound to its start, read to
// the end and closed the first time; the outcome is kept for later calls.
// Every failure is an *InvalidRequestError.
func (m *Message) Payload() ([]byte, error) {
	m.once.Do(func() {
		m.payload, m.payloadErr = m.load()
	})
	return m.payload, m.payloadErr
}

func (m *Message) load() ([]byte, error) {
	switch {
	case m.data != nil:
		return m.data, nil
	case m.stream != nil:
		return drain(m.stream)
	default:
		return nil, invalidRequest(CodeNoData, "message data must be bytes or a stream", nil)
	}
}

// drain rewinds, reads and closes r. r is closed on every path.
func drain(r io.Reader) (data []byte, err error) {
	if c, ok := r.(io.Closer); ok {
		defer func() {
			if cerr := c.Close(); cerr != nil && err == nil {
				err = invalidRequest(CodeUnreadable, "cannot read message data", cerr)
			}
		}()
	}

	seeker, ok := r.(io.Seeker)
	if !ok {
		return nil, invalidRequest(CodeUnseekable, "cannot seek to start of message data", errNoSeeker)
	}
	if _, err := seeker.Seek(0, io.SeekStart); err != nil {
		return nil, invalidRequest(CodeUnseekable, "cannot seek to start of message data", err)
	}

	data, err = io.ReadAll(r)
	if err != nil {
		return nil, invalidRequest(CodeUnreadable, "cannot read message data", err)
	}
	return data, nil
}

func copyStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
