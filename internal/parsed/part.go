package parsed

import (
	"bytes"
	"io"
)

// Part is a node of the body tree, either *Leaf or *Multipart.
type Part interface {
	// Attrs returns the content attributes of the part.
	Attrs() *Attributes
	isPart()
}

// Attributes are the content properties the parser resolved for a part. Any
// string field is empty when the corresponding header was absent.
type Attributes struct {
	// ContentType is the lowercased media type without parameters.
	ContentType string

	// Charset is the charset parameter of the Content-Type field.
	Charset string

	// TransferEncoding is the lowercased Content-Transfer-Encoding value.
	TransferEncoding string

	// Filename comes from Content-Disposition or the Content-Type name
	// parameter.
	Filename string

	// Body is the part content with the transfer encoding removed. Text is
	// still in its declared charset.
	Body []byte
}

// Content returns a fresh reader over the decoded part content.
func (a *Attributes) Content() io.Reader {
	return bytes.NewReader(a.Body)
}

// Leaf is a part without children.
type Leaf struct {
	Attributes
}

// Multipart is a container the parser recognized as having child parts.
type Multipart struct {
	Attributes
	Children []Part
}

// Attrs implements Part.
func (l *Leaf) Attrs() *Attributes { return &l.Attributes }

// Attrs implements Part.
func (m *Multipart) Attrs() *Attributes { return &m.Attributes }

func (*Leaf) isPart()      {}
func (*Multipart) isPart() {}

// Message is a parsed message: its top-level headers in order and its body.
type Message struct {
	Headers []Header
	Body    Part
}
