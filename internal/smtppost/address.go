package smtppost

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zostay/go-addr/pkg/addr"
)

var errMissingDomain = errors.New("missing local part or domain")

// AddressError describes an address that failed validation.
type AddressError struct {
	Input string
	Code  string
	Err   error
}

func (e *AddressError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid address %q: %v", e.Input, e.Err)
	}
	return fmt.Sprintf("invalid address %q", e.Input)
}

func (e *AddressError) Unwrap() error {
	return e.Err
}

// Address is a validated mailbox used on the envelope.
type Address struct {
	email string
	name  string
}

// ParseAddress validates s as a single RFC 5322 mailbox. Surrounding
// whitespace is ignored and a display name is accepted.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Address{}, &AddressError{Input: s, Code: CodeEmptyAddress}
	}

	mb, err := addr.ParseEmailMailbox(s)
	if err != nil {
		return Address{}, &AddressError{Input: s, Code: CodeInvalidAddress, Err: err}
	}

	email := mb.Address()
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" {
		return Address{}, &AddressError{
			Input: s,
			Code:  CodeInvalidAddress,
			Err:   errMissingDomain,
		}
	}

	return Address{email: email, name: mb.DisplayName()}, nil
}

// Email returns the bare addr-spec.
func (a Address) Email() string { return a.email }

// Name returns the display name, if any.
func (a Address) Name() string { return a.name }

func (a Address) String() string { return a.email }
