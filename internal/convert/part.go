package convert

import (
	"strings"

	"github.com/shineum/smtp-post/internal/charset"
	"github.com/shineum/smtp-post/internal/compose"
	"github.com/shineum/smtp-post/internal/parsed"
)

// Part converts a body part and, for containers, all of its descendants.
//
// The declared content type decides the shape of the result: a container
// whose type is not multipart/* is converted like a leaf.
func (c *Converter) Part(p parsed.Part) compose.Part {
	attrs := p.Attrs()

	contentType := attrs.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}

	if mp, ok := p.(*parsed.Multipart); ok {
		if subtype, isMultipart := strings.CutPrefix(contentType, "multipart/"); isMultipart {
			children := make([]compose.Part, 0, len(mp.Children))
			for _, child := range mp.Children {
				children = append(children, c.Part(child))
			}
			return compose.NewMultipart(subtype, children...)
		}
	}

	if subtype, isText := strings.CutPrefix(contentType, "text/"); isText {
		cs := attrs.Charset
		if cs == "" {
			cs = c.defaultCharset
		}

		return &compose.TextPart{
			Body:     charset.DecodeLenient(cs, attrs.Body),
			Charset:  strings.ToLower(cs),
			Subtype:  subtype,
			Encoding: textEncodings[attrs.TransferEncoding],
		}
	}

	return &compose.DataPart{
		Body:        attrs.Content(),
		Filename:    attrs.Filename,
		ContentType: contentType,
		Encoding:    attrs.TransferEncoding,
	}
}
