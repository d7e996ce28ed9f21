// Package convert maps a parsed message onto the compose model. Conversion is
// total: every header and part kind has exactly one rule, and malformed input
// degrades to a best-effort result instead of an error.
package convert

import (
	"strings"

	"github.com/shineum/smtp-post/internal/charset"
	"github.com/shineum/smtp-post/internal/compose"
	"github.com/shineum/smtp-post/internal/parsed"
)

// defaultContentType is assumed for parts that do not declare a type.
const defaultContentType = "application/octet-stream"

// textEncodings are the transfer encodings kept on text parts. Anything else
// is left for the serializer to choose.
var textEncodings = map[string]compose.TransferEncoding{
	"quoted-printable": compose.QuotedPrintable,
	"base64":           compose.Base64,
	"8bit":             compose.EightBit,
}

// Converter converts parsed messages. It holds no mutable state and is safe
// for concurrent use.
type Converter struct {
	defaultCharset string
}

// New returns a Converter that reads text parts without a declared charset as
// defaultCharset. An empty value selects charset.Default.
func New(defaultCharset string) *Converter {
	if strings.TrimSpace(defaultCharset) == "" {
		defaultCharset = charset.Default
	}
	return &Converter{defaultCharset: defaultCharset}
}

// DefaultCharset returns the charset assumed for undeclared text parts.
func (c *Converter) DefaultCharset() string {
	return c.defaultCharset
}

// Message converts every header, dropping those without a rule, and the body
// part. Header order and repeated names are preserved.
func (c *Converter) Message(m *parsed.Message) *compose.Message {
	out := &compose.Message{
		Headers: make([]compose.Header, 0, len(m.Headers)),
	}
	for _, h := range m.Headers {
		if ch, ok := c.Header(h); ok {
			out.Headers = append(out.Headers, ch)
		}
	}
	if m.Body != nil {
		out.Body = c.Part(m.Body)
	}
	return out
}
