package parser

import (
	"bytes"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/emersion/go-message"
	gomail "github.com/emersion/go-message/mail"

	"github.com/shineum/smtp-post/internal/parsed"
)

// fieldKind is the parsed.Header type a field name is read into.
type fieldKind int

const (
	kindGeneric fieldKind = iota
	kindAddress
	kindDate
	kindID
	kindParameter
	kindReceived
	kindSubject
)

// fieldKinds maps lowercased field names onto their kind. Names not listed
// are generic.
var fieldKinds = map[string]fieldKind{
	"from":            kindAddress,
	"to":              kindAddress,
	"cc":              kindAddress,
	"bcc":             kindAddress,
	"sender":          kindAddress,
	"reply-to":        kindAddress,
	"resent-from":     kindAddress,
	"resent-to":       kindAddress,
	"resent-cc":       kindAddress,
	"resent-bcc":      kindAddress,
	"resent-reply-to": kindAddress,
	"resent-sender":   kindAddress,
	"return-path":     kindAddress,
	"delivered-to":    kindAddress,

	"date":          kindDate,
	"resent-date":   kindDate,
	"delivery-date": kindDate,
	"expires":       kindDate,
	"expiry-date":   kindDate,
	"reply-by":      kindDate,

	"message-id":        kindID,
	"content-id":        kindID,
	"in-reply-to":       kindID,
	"references":        kindID,
	"resent-message-id": kindID,

	"content-type":        kindParameter,
	"content-disposition": kindParameter,

	"received": kindReceived,

	"subject": kindSubject,
}

// parseHeaders converts every field of h, in order.
func parseHeaders(h message.Header) []parsed.Header {
	var out []parsed.Header

	fields := h.Fields()
	for fields.Next() {
		name := fieldName(fields)
		raw := fields.Value()

		text, err := fields.Text()
		if err != nil {
			text = raw
		}

		out = append(out, parseField(name, raw, text))
	}

	return out
}

// fieldName returns the field name with its original spelling when the raw
// bytes are available.
func fieldName(fields message.HeaderFields) string {
	if raw, err := fields.Raw(); err == nil {
		if i := bytes.IndexByte(raw, ':'); i > 0 {
			return string(bytes.TrimSpace(raw[:i]))
		}
	}
	return fields.Key()
}

func parseField(name, raw, text string) parsed.Header {
	switch fieldKinds[strings.ToLower(name)] {
	case kindAddress:
		return &parsed.AddressHeader{FieldName: name, Raw: raw, Addresses: parseAddresses(raw)}
	case kindDate:
		t, err := parseDate(raw)
		if err != nil {
			return &parsed.GenericHeader{FieldName: name, Raw: raw, Value: text}
		}
		return &parsed.DateHeader{FieldName: name, Raw: raw, Time: t}
	case kindID:
		return &parsed.IDHeader{FieldName: name, Raw: raw, IDs: parseIDs(raw)}
	case kindParameter:
		return &parsed.ParameterHeader{FieldName: name, Raw: raw, Parts: parameterParts(raw)}
	case kindReceived:
		return &parsed.ReceivedHeader{ParameterHeader: parsed.ParameterHeader{
			FieldName: name,
			Raw:       raw,
			Parts:     receivedParts(raw),
		}}
	case kindSubject:
		return &parsed.SubjectHeader{FieldName: name, Raw: raw, Value: text}
	default:
		return &parsed.GenericHeader{FieldName: name, Raw: raw, Value: text}
	}
}

// parseAddresses parses an address list strictly, falling back to a comma
// split for the malformed lists found in the wild.
func parseAddresses(v string) []parsed.Address {
	if strings.TrimSpace(v) == "" {
		return nil
	}

	list, err := gomail.ParseAddressList(v)
	if err != nil {
		return lenientAddresses(v)
	}

	out := make([]parsed.Address, 0, len(list))
	for _, a := range list {
		out = append(out, parsed.Address{Email: a.Address, Name: a.Name})
	}
	return out
}

// lenientAddresses treats the last word of each comma separated entry as the
// address and the words before it as the display name.
func lenientAddresses(v string) []parsed.Address {
	var out []parsed.Address
	for _, entry := range strings.Split(v, ",") {
		words := strings.Fields(entry)
		if len(words) == 0 {
			continue
		}
		email := strings.Trim(words[len(words)-1], "<>")
		name := strings.Trim(strings.Join(words[:len(words)-1], " "), `"`)
		if email == "" && name == "" {
			continue
		}
		out = append(out, parsed.Address{Email: email, Name: name})
	}
	return out
}

// parseDate accepts RFC 5322 dates and, failing that, any layout dateparse
// recognizes.
func parseDate(v string) (time.Time, error) {
	t, err := mail.ParseDate(v)
	if err == nil {
		return t, nil
	}
	return dateparse.ParseAny(strings.TrimSpace(v))
}

// parseIDs extracts the identifiers between angle brackets. Values without
// brackets are split on whitespace.
func parseIDs(v string) []string {
	var ids []string
	rest := v
	for {
		start := strings.IndexByte(rest, '<')
		if start < 0 {
			break
		}
		end := strings.IndexByte(rest[start:], '>')
		if end < 0 {
			break
		}
		if id := strings.TrimSpace(rest[start+1 : start+end]); id != "" {
			ids = append(ids, id)
		}
		rest = rest[start+end+1:]
	}

	if len(ids) == 0 {
		if words := strings.Fields(v); len(words) > 0 {
			ids = words
		}
	}
	return ids
}

// receivedParts splits a Received trace into its name-value tokens and the
// timestamp after the final semicolon.
func receivedParts(v string) []parsed.HeaderPart {
	trace, date := v, ""
	if i := strings.LastIndexByte(v, ';'); i >= 0 {
		trace, date = v[:i], strings.TrimSpace(v[i+1:])
	}

	var parts []parsed.HeaderPart
	words := strings.Fields(trace)
	for i := 0; i+1 < len(words); i += 2 {
		parts = append(parts, &parsed.Parameter{Name: strings.ToLower(words[i]), Text: words[i+1]})
	}
	if date != "" {
		parts = append(parts, &parsed.Token{Text: date})
	}
	return parts
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
