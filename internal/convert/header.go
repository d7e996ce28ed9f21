package convert

import (
	"strings"

	"github.com/shineum/smtp-post/internal/compose"
	"github.com/shineum/smtp-post/internal/parsed"
)

// Header converts a single parsed header. It reports false for headers that
// have no compose equivalent, which includes every Received field.
//
// In-Reply-To is always copied as text, whatever kind the parser gave it.
func (c *Converter) Header(h parsed.Header) (compose.Header, bool) {
	if strings.EqualFold(h.Name(), "in-reply-to") {
		return &compose.TextHeader{FieldName: h.Name(), Value: h.RawValue()}, true
	}

	switch h := h.(type) {
	case *parsed.AddressHeader:
		return convertAddressHeader(h), true
	case *parsed.DateHeader:
		return &compose.DateHeader{FieldName: h.FieldName, Time: h.Time}, true
	case *parsed.GenericHeader:
		return &compose.TextHeader{FieldName: h.FieldName, Value: h.Value}, true
	case *parsed.IDHeader:
		ids := make([]string, len(h.IDs))
		copy(ids, h.IDs)
		return &compose.IDHeader{FieldName: h.FieldName, IDs: ids}, true
	case *parsed.ParameterHeader:
		return convertParameterHeader(h), true
	case *parsed.SubjectHeader:
		return &compose.TextHeader{FieldName: h.FieldName, Value: h.Value}, true
	default:
		return nil, false
	}
}

func convertAddressHeader(h *parsed.AddressHeader) compose.Header {
	switch strings.ToLower(h.FieldName) {
	case "return-path":
		return &compose.PathHeader{
			FieldName: h.FieldName,
			Address:   compose.Address{Email: h.Email(), Name: h.PersonName()},
		}
	case "sender":
		return &compose.MailboxHeader{
			FieldName: h.FieldName,
			Address:   compose.Address{Email: h.Email(), Name: h.PersonName()},
		}
	}

	addrs := make([]compose.Address, 0, len(h.Addresses))
	for _, a := range h.Addresses {
		addrs = append(addrs, compose.Address{Email: a.Email, Name: a.Name})
	}
	return &compose.MailboxListHeader{FieldName: h.FieldName, Addresses: addrs}
}

// convertParameterHeader scans the parts in order. Parameters fill the map
// and the last plain token becomes the value.
func convertParameterHeader(h *parsed.ParameterHeader) compose.Header {
	var value string
	params := make(map[string]string)

	for _, part := range h.Parts {
		if p, ok := part.(*parsed.Parameter); ok {
			params[p.Name] = p.Text
		} else {
			value = part.Value()
		}
	}

	return &compose.ParameterizedHeader{FieldName: h.FieldName, Value: value, Params: params}
}
