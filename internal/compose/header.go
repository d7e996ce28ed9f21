// Package compose is the compose-ready message model: typed header nodes and a
// body part tree that can be serialized back into an RFC 5322 message.
package compose

import "time"

// Address is a mailbox with an optional display name.
type Address struct {
	Email string
	Name  string
}

// Header is a single header node: *PathHeader, *MailboxHeader,
// *MailboxListHeader, *TextHeader, *DateHeader, *IDHeader or
// *ParameterizedHeader.
type Header interface {
	Name() string
	isHeader()
}

// PathHeader carries a single address in angle brackets, as used by
// Return-Path.
type PathHeader struct {
	FieldName string
	Address   Address
}

// MailboxHeader carries exactly one mailbox, as used by Sender.
type MailboxHeader struct {
	FieldName string
	Address   Address
}

// MailboxListHeader carries an ordered list of mailboxes.
type MailboxListHeader struct {
	FieldName string
	Addresses []Address
}

// TextHeader carries unstructured text.
type TextHeader struct {
	FieldName string
	Value     string
}

// DateHeader carries a timestamp. The location of Time is kept on output.
type DateHeader struct {
	FieldName string
	Time      time.Time
}

// IDHeader carries message identifiers without angle brackets.
type IDHeader struct {
	FieldName string
	IDs       []string
}

// ParameterizedHeader carries a primary value and named parameters.
type ParameterizedHeader struct {
	FieldName string
	Value     string
	Params    map[string]string
}

func (h *PathHeader) Name() string          { return h.FieldName }
func (h *MailboxHeader) Name() string       { return h.FieldName }
func (h *MailboxListHeader) Name() string   { return h.FieldName }
func (h *TextHeader) Name() string          { return h.FieldName }
func (h *DateHeader) Name() string          { return h.FieldName }
func (h *IDHeader) Name() string            { return h.FieldName }
func (h *ParameterizedHeader) Name() string { return h.FieldName }

func (*PathHeader) isHeader()          {}
func (*MailboxHeader) isHeader()       {}
func (*MailboxListHeader) isHeader()   {}
func (*TextHeader) isHeader()          {}
func (*DateHeader) isHeader()          {}
func (*IDHeader) isHeader()            {}
func (*ParameterizedHeader) isHeader() {}
