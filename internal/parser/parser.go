// Package parser reads raw RFC 5322 messages into the parsed object model,
// classifying each header field by kind and walking the MIME part tree.
package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/emersion/go-message"

	"github.com/shineum/smtp-post/internal/parsed"
)

// maxPartDepth bounds multipart nesting.
const maxPartDepth = 64

// ErrTooDeep is returned for messages nested deeper than maxPartDepth.
var ErrTooDeep = errors.New("multipart nesting too deep")

// Parse parses a raw message held in memory.
func Parse(raw []byte) (*parsed.Message, error) {
	return ParseReader(bytes.NewReader(raw))
}

// ParseReader parses a raw message. Unknown charsets and transfer encodings
// are tolerated: such content is kept undecoded.
func ParseReader(r io.Reader) (*parsed.Message, error) {
	entity, err := message.Read(r)
	if err != nil && !recoverable(err) {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}

	body, err := parsePart(entity, 0)
	if err != nil {
		return nil, err
	}

	return &parsed.Message{
		Headers: parseHeaders(entity.Header),
		Body:    body,
	}, nil
}

// recoverable reports whether go-message returned a usable entity alongside
// err.
func recoverable(err error) bool {
	return message.IsUnknownCharset(err) || message.IsUnknownEncoding(err)
}

func parsePart(e *message.Entity, depth int) (parsed.Part, error) {
	if depth > maxPartDepth {
		return nil, ErrTooDeep
	}

	attrs := partAttributes(e.Header)

	if mr := e.MultipartReader(); mr != nil {
		mp := &parsed.Multipart{Attributes: attrs}
		for {
			child, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil && !recoverable(err) {
				return nil, fmt.Errorf("failed to read next part: %w", err)
			}

			p, err := parsePart(child, depth+1)
			if err != nil {
				return nil, err
			}
			mp.Children = append(mp.Children, p)
		}
		return mp, nil
	}

	body, err := io.ReadAll(e.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s part content: %w", attrs.ContentType, err)
	}
	attrs.Body = body

	return &parsed.Leaf{Attributes: attrs}, nil
}

// partAttributes resolves the content properties of a part from its header.
func partAttributes(h message.Header) parsed.Attributes {
	var attrs parsed.Attributes

	var ctParams map[string]string
	if raw := h.Get("Content-Type"); raw != "" {
		mt, params, err := h.ContentType()
		if err != nil {
			mt, params = splitParameters(raw)
		}
		attrs.ContentType = strings.ToLower(mt)
		attrs.Charset = params["charset"]
		ctParams = params
	}

	attrs.TransferEncoding = strings.ToLower(strings.TrimSpace(h.Get("Content-Transfer-Encoding")))

	if raw := h.Get("Content-Disposition"); raw != "" {
		_, params, err := h.ContentDisposition()
		if err != nil {
			_, params = splitParameters(raw)
		}
		attrs.Filename = params["filename"]
	}
	if attrs.Filename == "" {
		attrs.Filename = ctParams["name"]
	}

	return attrs
}

// splitParameters is a lenient fallback for values mime.ParseMediaType
// rejects. It splits on semicolons and strips quotes from parameter values.
func splitParameters(v string) (string, map[string]string) {
	segments := strings.Split(v, ";")
	params := make(map[string]string, len(segments)-1)
	for _, seg := range segments[1:] {
		name, value, ok := strings.Cut(seg, "=")
		if !ok {
			continue
		}
		name = strings.ToLower(strings.TrimSpace(name))
		value = strings.Trim(strings.TrimSpace(value), `"`)
		if name != "" {
			params[name] = value
		}
	}
	return strings.TrimSpace(segments[0]), params
}

// parameterParts splits a parameterized field body into its primary token
// followed by its parameters in name order.
func parameterParts(v string) []parsed.HeaderPart {
	value, params, err := mime.ParseMediaType(v)
	if err != nil {
		value, params = splitParameters(v)
	}

	parts := make([]parsed.HeaderPart, 0, len(params)+1)
	if value != "" {
		parts = append(parts, &parsed.Token{Text: value})
	}
	for _, name := range sortedKeys(params) {
		parts = append(parts, &parsed.Parameter{Name: name, Text: params[name]})
	}
	return parts
}
