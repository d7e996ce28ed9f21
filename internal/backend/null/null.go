// Package null implements a Backend that delivers nothing and prints each
// message in a human-readable format instead.
package null

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/docker/go-units"

	"github.com/shineum/smtp-post/internal/compose"
	"github.com/shineum/smtp-post/internal/convert"
	"github.com/shineum/smtp-post/internal/parser"
	"github.com/shineum/smtp-post/internal/smtppost"
)

const separator = "========================================\n"

// Backend prints messages instead of sending them.
type Backend struct {
	// writer is the output destination, defaulting to os.Stdout.
	writer    io.Writer
	converter *convert.Converter
}

// New creates a Backend that writes to os.Stdout. With a converter the dump
// includes the composed header list and part tree.
func New(c *convert.Converter) *Backend {
	return &Backend{writer: os.Stdout, converter: c}
}

// NewWithWriter creates a Backend that writes to the given writer.
// This is useful for testing.
func NewWithWriter(w io.Writer, c *convert.Converter) *Backend {
	return &Backend{writer: w, converter: c}
}

// Send prints msg. It never returns an error: problems with the message are
// written into the dump.
func (b *Backend) Send(_ context.Context, msg *smtppost.Message) error {
	var sb strings.Builder

	sb.WriteString(separator)
	fmt.Fprintf(&sb, "From: %s\n", msg.From())
	fmt.Fprintf(&sb, "To: %s\n", strings.Join(msg.To(), ", "))

	data, err := msg.Payload()
	if err != nil {
		fmt.Fprintf(&sb, "Data: unavailable (%v)\n", err)
	} else {
		fmt.Fprintf(&sb, "Size: %s\n", units.BytesSize(float64(len(data))))
		if b.converter != nil {
			b.describe(&sb, data)
		}
	}

	sb.WriteString(separator)

	// The dump is best effort; a failed write is not a delivery failure.
	_, _ = io.WriteString(b.writer, sb.String())
	return nil
}

// Name returns the backend name.
func (b *Backend) Name() string {
	return "null"
}

func (b *Backend) describe(sb *strings.Builder, data []byte) {
	p, err := parser.Parse(data)
	if err != nil {
		fmt.Fprintf(sb, "Parse error: %v\n", err)
		return
	}
	m := b.converter.Message(p)

	sb.WriteString("Headers:\n")
	for _, h := range m.Headers {
		fmt.Fprintf(sb, "  %s: %s\n", h.Name(), compose.FormatHeader(h))
	}

	sb.WriteString("Parts:\n")
	if m.Body != nil {
		writePart(sb, m.Body, 1)
	}
}

func writePart(sb *strings.Builder, p compose.Part, depth int) {
	indent := strings.Repeat("  ", depth)

	switch p := p.(type) {
	case *compose.Multipart:
		fmt.Fprintf(sb, "%s%s (%d parts)\n", indent, p.MediaType(), len(p.Parts))
		for _, child := range p.Parts {
			writePart(sb, child, depth+1)
		}
	case *compose.TextPart:
		enc := string(p.Encoding)
		if enc == "" {
			enc = "auto"
		}
		fmt.Fprintf(sb, "%s%s; charset=%s; encoding=%s (%s)\n",
			indent, p.MediaType(), p.Charset, enc, units.BytesSize(float64(len(p.Body))))
	case *compose.DataPart:
		name := p.Filename
		if name == "" {
			name = "unnamed"
		}
		fmt.Fprintf(sb, "%s%s %s\n", indent, p.ContentType, name)
	}
}
