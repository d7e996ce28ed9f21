// Package parsed defines the object model a MIME parser produces for an
// inbound message: an ordered header list of several semantic kinds and a
// recursively nested body part tree. Values in this package are read-only to
// their consumers.
package parsed

import "time"

// Header is a single parsed header field. The concrete type records how the
// parser classified the field: *AddressHeader, *DateHeader, *GenericHeader,
// *IDHeader, *ParameterHeader, *ReceivedHeader or *SubjectHeader.
type Header interface {
	// Name returns the field name as it appeared in the message.
	Name() string

	// RawValue returns the unparsed field body with folding removed.
	RawValue() string

	isHeader()
}

// Address is a single mailbox found in an address header.
type Address struct {
	Email string
	Name  string
}

// AddressHeader holds an address list such as From, To or Return-Path.
type AddressHeader struct {
	FieldName string
	Raw       string
	Addresses []Address
}

// Email returns the address of the first mailbox, or "" if the list is empty.
func (h *AddressHeader) Email() string {
	if len(h.Addresses) == 0 {
		return ""
	}
	return h.Addresses[0].Email
}

// PersonName returns the display name of the first mailbox.
func (h *AddressHeader) PersonName() string {
	if len(h.Addresses) == 0 {
		return ""
	}
	return h.Addresses[0].Name
}

// DateHeader holds a date-time field such as Date or Resent-Date.
type DateHeader struct {
	FieldName string
	Raw       string
	Time      time.Time
}

// GenericHeader holds a field with no further structure. Value has any
// encoded-words decoded.
type GenericHeader struct {
	FieldName string
	Raw       string
	Value     string
}

// IDHeader holds a list of message identifiers, without angle brackets.
type IDHeader struct {
	FieldName string
	Raw       string
	IDs       []string
}

// HeaderPart is one component of a ParameterHeader: either a *Token or a
// *Parameter.
type HeaderPart interface {
	Value() string
	isHeaderPart()
}

// Token is a non-parameter component, typically the primary value of a
// Content-Type or Content-Disposition field.
type Token struct {
	Text string
}

// Value returns the token text.
func (t *Token) Value() string { return t.Text }

// Parameter is a name=value component.
type Parameter struct {
	Name string
	Text string
}

// Value returns the parameter value.
func (p *Parameter) Value() string { return p.Text }

// ParameterHeader holds a field made of a primary value and parameters, such
// as Content-Type.
type ParameterHeader struct {
	FieldName string
	Raw       string
	Parts     []HeaderPart
}

// ReceivedHeader is the trace field variant of a ParameterHeader.
type ReceivedHeader struct {
	ParameterHeader
}

// SubjectHeader holds the Subject field with encoded-words decoded.
type SubjectHeader struct {
	FieldName string
	Raw       string
	Value     string
}

func (h *AddressHeader) Name() string   { return h.FieldName }
func (h *DateHeader) Name() string      { return h.FieldName }
func (h *GenericHeader) Name() string   { return h.FieldName }
func (h *IDHeader) Name() string        { return h.FieldName }
func (h *ParameterHeader) Name() string { return h.FieldName }
func (h *SubjectHeader) Name() string   { return h.FieldName }

func (h *AddressHeader) RawValue() string   { return h.Raw }
func (h *DateHeader) RawValue() string      { return h.Raw }
func (h *GenericHeader) RawValue() string   { return h.Raw }
func (h *IDHeader) RawValue() string        { return h.Raw }
func (h *ParameterHeader) RawValue() string { return h.Raw }
func (h *SubjectHeader) RawValue() string   { return h.Raw }

func (*AddressHeader) isHeader()   {}
func (*DateHeader) isHeader()      {}
func (*GenericHeader) isHeader()   {}
func (*IDHeader) isHeader()        {}
func (*ParameterHeader) isHeader() {}
func (*SubjectHeader) isHeader()   {}

func (*Token) isHeaderPart()     {}
func (*Parameter) isHeaderPart() {}
