package compose

import (
	"io"
	"strings"
)

// Part is a node of the body tree: *Multipart, *TextPart or *DataPart.
type Part interface {
	// MediaType returns the type/subtype written in Content-Type.
	MediaType() string
	isPart()
}

// Subtype selects the multipart flavor.
type Subtype int

// Known multipart subtypes. Other carries its literal name in
// Multipart.OtherSubtype.
const (
	Mixed Subtype = iota
	Digest
	Alternative
	Related
	FormData
	Other
)

// String returns the literal subtype for the known values.
func (s Subtype) String() string {
	switch s {
	case Mixed:
		return "mixed"
	case Digest:
		return "digest"
	case Alternative:
		return "alternative"
	case Related:
		return "related"
	case FormData:
		return "form-data"
	default:
		return "other"
	}
}

// Multipart is a container of ordered child parts.
type Multipart struct {
	Subtype      Subtype
	OtherSubtype string
	Parts        []Part
}

// NewMultipart returns a container for the given literal subtype, mapping the
// known names onto their Subtype and keeping anything else as Other.
func NewMultipart(subtype string, parts ...Part) *Multipart {
	m := &Multipart{Parts: parts}
	switch subtype {
	case "mixed":
		m.Subtype = Mixed
	case "digest":
		m.Subtype = Digest
	case "alternative":
		m.Subtype = Alternative
	case "related":
		m.Subtype = Related
	case "form-data":
		m.Subtype = FormData
	default:
		m.Subtype = Other
		m.OtherSubtype = subtype
	}
	return m
}

// MediaSubtype returns the subtype exactly as it is written on output.
func (m *Multipart) MediaSubtype() string {
	if m.Subtype == Other {
		return m.OtherSubtype
	}
	return m.Subtype.String()
}

// MediaType implements Part.
func (m *Multipart) MediaType() string {
	return "multipart/" + m.MediaSubtype()
}

// TransferEncoding names a content transfer encoding chosen for a text part.
// EncodingUnset lets the serializer pick one.
type TransferEncoding string

// Transfer encodings accepted for text parts.
const (
	EncodingUnset   TransferEncoding = ""
	QuotedPrintable TransferEncoding = "quoted-printable"
	Base64          TransferEncoding = "base64"
	EightBit        TransferEncoding = "8bit"
)

// TextPart is decoded text with the charset it is to be written in.
type TextPart struct {
	Body     string
	Charset  string
	Subtype  string
	Encoding TransferEncoding
}

// MediaType implements Part.
func (t *TextPart) MediaType() string {
	return "text/" + t.Subtype
}

// DataPart is opaque content written with its full content type.
type DataPart struct {
	Body        io.Reader
	Filename    string
	ContentType string
	Encoding    string
}

// MediaType implements Part. Parameters in ContentType are dropped.
func (d *DataPart) MediaType() string {
	mt, _, _ := strings.Cut(d.ContentType, ";")
	return strings.TrimSpace(mt)
}

func (*Multipart) isPart() {}
func (*TextPart) isPart()  {}
func (*DataPart) isPart()  {}

// Message is a composed message ready for serialization.
type Message struct {
	Headers []Header
	Body    Part
}

// Header returns the first header node with the given name, compared
// case-insensitively.
func (m *Message) Header(name string) (Header, bool) {
	for _, h := range m.Headers {
		if strings.EqualFold(h.Name(), name) {
			return h, true
		}
	}
	return nil, false
}
