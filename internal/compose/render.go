package compose

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/textproto"
	"sort"
	"strings"
	"time"

	"github.com/shineum/smtp-post/internal/charset"
)

// maxLineLength is the column at which header fields are folded.
const maxLineLength = 78

// base64LineLength is the RFC 2045 limit for encoded lines.
const base64LineLength = 76

// sevenBit is the identity encoding for content without high bytes.
const sevenBit = "7bit"

// partOwnedFields are written from the body part and never copied from the
// message-level header list.
var partOwnedFields = map[string]bool{
	"Content-Type":              true,
	"Content-Transfer-Encoding": true,
	"Content-Disposition":       true,
}

// Bytes serializes m as an RFC 5322 message.
func (m *Message) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := m.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteTo serializes m into w. Header nodes are written in order, followed
// by the headers and content of the body part. Bcc is never written and
// MIME-Version is added when missing.
func (m *Message) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer

	hasVersion := false
	for _, h := range m.Headers {
		name := textproto.CanonicalMIMEHeaderKey(h.Name())
		if partOwnedFields[name] || name == "Bcc" {
			continue
		}
		if name == "Mime-Version" {
			hasVersion = true
		}
		writeField(&buf, h.Name(), FormatHeader(h))
	}
	if !hasVersion {
		writeField(&buf, "MIME-Version", "1.0")
	}

	body := m.Body
	if body == nil {
		body = &TextPart{Subtype: "plain", Charset: "utf-8"}
	}

	hdr, writeBody, err := preparePart(body)
	if err != nil {
		return 0, err
	}
	for _, name := range []string{"Content-Type", "Content-Transfer-Encoding", "Content-Disposition"} {
		if v := hdr.Get(name); v != "" {
			writeField(&buf, name, v)
		}
	}
	buf.WriteString("\r\n")

	if err := writeBody(&buf); err != nil {
		return 0, err
	}

	return buf.WriteTo(w)
}

// FormatHeader returns the field body for h as it is written on output.
func FormatHeader(h Header) string {
	switch h := h.(type) {
	case *PathHeader:
		return "<" + h.Address.Email + ">"
	case *MailboxHeader:
		return formatAddress(h.Address)
	case *MailboxListHeader:
		list := make([]string, 0, len(h.Addresses))
		for _, a := range h.Addresses {
			list = append(list, formatAddress(a))
		}
		return strings.Join(list, ", ")
	case *TextHeader:
		return mime.QEncoding.Encode("utf-8", sanitize(h.Value))
	case *DateHeader:
		return h.Time.Format(time.RFC1123Z)
	case *IDHeader:
		ids := make([]string, 0, len(h.IDs))
		for _, id := range h.IDs {
			ids = append(ids, "<"+id+">")
		}
		return strings.Join(ids, " ")
	case *ParameterizedHeader:
		return formatParameterized(h.Value, h.Params)
	default:
		return ""
	}
}

func formatAddress(a Address) string {
	if a.Name == "" {
		return a.Email
	}
	return (&mail.Address{Name: a.Name, Address: a.Email}).String()
}

// formatParameterized renders value and params as a media type when the
// value is a valid token, and quotes every parameter by hand otherwise.
func formatParameterized(value string, params map[string]string) string {
	value = sanitize(value)
	if s := mime.FormatMediaType(value, params); s != "" {
		return s
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(value)
	for _, k := range keys {
		v := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(sanitize(params[k]))
		fmt.Fprintf(&b, "; %s=\"%s\"", k, v)
	}
	return b.String()
}

// sanitize keeps a value on a single line.
func sanitize(v string) string {
	return strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ").Replace(v)
}

// writeField writes name: value, folding at spaces when the line gets long.
func writeField(buf *bytes.Buffer, name, value string) {
	line := name + ": "
	col := len(line)
	buf.WriteString(line)

	words := strings.Split(value, " ")
	for i, word := range words {
		if i > 0 {
			if col+1+len(word) > maxLineLength {
				buf.WriteString("\r\n ")
				col = 1
			} else {
				buf.WriteByte(' ')
				col++
			}
		}
		buf.WriteString(word)
		col += len(word)
	}
	buf.WriteString("\r\n")
}

type bodyWriter func(w io.Writer) error

// preparePart returns the MIME headers for p and a function writing its
// encoded content.
func preparePart(p Part) (textproto.MIMEHeader, bodyWriter, error) {
	switch p := p.(type) {
	case *Multipart:
		return prepareMultipart(p)
	case *TextPart:
		return prepareText(p)
	case *DataPart:
		return prepareData(p)
	default:
		return nil, nil, fmt.Errorf("unsupported part type %T", p)
	}
}

func prepareMultipart(p *Multipart) (textproto.MIMEHeader, bodyWriter, error) {
	boundary, err := randomBoundary()
	if err != nil {
		return nil, nil, err
	}

	hdr := make(textproto.MIMEHeader)
	ct := mime.FormatMediaType(p.MediaType(), map[string]string{"boundary": boundary})
	if ct == "" {
		ct = fmt.Sprintf("%s; boundary=%q", p.MediaType(), boundary)
	}
	hdr.Set("Content-Type", ct)

	return hdr, func(w io.Writer) error {
		mw := multipart.NewWriter(w)
		if err := mw.SetBoundary(boundary); err != nil {
			return err
		}
		for _, child := range p.Parts {
			childHdr, writeChild, err := preparePart(child)
			if err != nil {
				return err
			}
			pw, err := mw.CreatePart(childHdr)
			if err != nil {
				return fmt.Errorf("failed to create %s part: %w", child.MediaType(), err)
			}
			if err := writeChild(pw); err != nil {
				return err
			}
		}
		return mw.Close()
	}, nil
}

func prepareText(p *TextPart) (textproto.MIMEHeader, bodyWriter, error) {
	cs := p.Charset
	if cs == "" {
		cs = strings.ToLower(charset.Default)
	}

	enc := p.Encoding
	if enc == EncodingUnset {
		if strings.EqualFold(cs, "utf-8") {
			enc = QuotedPrintable
		} else {
			enc = Base64
		}
	}

	content, err := charset.Encode(cs, p.Body)
	if err != nil {
		content = []byte(p.Body)
	}

	hdr := make(textproto.MIMEHeader)
	ct := mime.FormatMediaType(p.MediaType(), map[string]string{"charset": cs})
	if ct == "" {
		ct = p.MediaType() + "; charset=" + cs
	}
	hdr.Set("Content-Type", ct)
	hdr.Set("Content-Transfer-Encoding", string(enc))

	return hdr, func(w io.Writer) error {
		return encodeContent(w, string(enc), false, content)
	}, nil
}

func prepareData(p *DataPart) (textproto.MIMEHeader, bodyWriter, error) {
	ct := p.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}

	var content []byte
	if p.Body != nil {
		var err error
		if content, err = io.ReadAll(p.Body); err != nil {
			return nil, nil, fmt.Errorf("failed to read %s content: %w", ct, err)
		}
	}

	enc := strings.ToLower(p.Encoding)
	if enc == "" {
		enc = defaultDataEncoding(ct, content)
	}

	hdr := make(textproto.MIMEHeader)
	if p.Filename != "" {
		if mt, params, err := mime.ParseMediaType(ct); err == nil {
			if _, ok := params["name"]; !ok {
				params["name"] = p.Filename
			}
			if s := mime.FormatMediaType(mt, params); s != "" {
				ct = s
			}
		}
		disp := mime.FormatMediaType("attachment", map[string]string{"filename": p.Filename})
		hdr.Set("Content-Disposition", disp)
	}
	hdr.Set("Content-Type", ct)
	hdr.Set("Content-Transfer-Encoding", enc)

	return hdr, func(w io.Writer) error {
		return encodeContent(w, enc, true, content)
	}, nil
}

// defaultDataEncoding picks the encoding for a data part that has none.
// message/* and multipart/* may only be 7bit, 8bit or binary (RFC 2046).
func defaultDataEncoding(contentType string, content []byte) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if !strings.HasPrefix(ct, "message/") && !strings.HasPrefix(ct, "multipart/") {
		return string(Base64)
	}
	for _, b := range content {
		if b >= 0x80 {
			return string(EightBit)
		}
	}
	return sevenBit
}

// encodeContent writes content with the named transfer encoding. Encodings
// without a codec are written as-is.
func encodeContent(w io.Writer, enc string, binary bool, content []byte) error {
	switch enc {
	case string(Base64):
		if !binary {
			content = normalizeNewlines(content)
		}
		encoded := base64.StdEncoding.EncodeToString(content)
		for len(encoded) > base64LineLength {
			if _, err := io.WriteString(w, encoded[:base64LineLength]+"\r\n"); err != nil {
				return err
			}
			encoded = encoded[base64LineLength:]
		}
		_, err := io.WriteString(w, encoded)
		return err
	case string(QuotedPrintable):
		qw := quotedprintable.NewWriter(w)
		qw.Binary = binary
		if _, err := qw.Write(content); err != nil {
			return err
		}
		return qw.Close()
	case string(EightBit):
		_, err := w.Write(normalizeNewlines(content))
		return err
	default:
		_, err := w.Write(content)
		return err
	}
}

// normalizeNewlines converts bare CR and LF line breaks into CRLF.
func normalizeNewlines(b []byte) []byte {
	b = bytes.ReplaceAll(b, []byte("\r\n"), []byte("\n"))
	b = bytes.ReplaceAll(b, []byte("\r"), []byte("\n"))
	return bytes.ReplaceAll(b, []byte("\n"), []byte("\r\n"))
}

func randomBoundary() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("failed to generate boundary: %w", err)
	}
	return "_=_" + hex.EncodeToString(b[:]), nil
}
