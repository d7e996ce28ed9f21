package smtppost

import "errors"

// Envelope is the transport-level sender and recipient list. It is separate
// from any From or To header in the message data.
type Envelope struct {
	Sender     Address
	Recipients []Address
}

// NewEnvelope validates the sender and every recipient. A failure is an
// *InvalidRequestError whose Code is taken from the *AddressError it wraps.
func NewEnvelope(from string, to []string) (*Envelope, error) {
	sender, err := ParseAddress(from)
	if err != nil {
		return nil, addressRequestError("invalid sender address", err)
	}

	if len(to) == 0 {
		return nil, invalidRequest(CodeNoRecipients, "no recipients", nil)
	}

	env := &Envelope{Sender: sender, Recipients: make([]Address, 0, len(to))}
	for _, rcpt := range to {
		a, err := ParseAddress(rcpt)
		if err != nil {
			return nil, addressRequestError("invalid recipient address", err)
		}
		env.Recipients = append(env.Recipients, a)
	}
	return env, nil
}

func addressRequestError(message string, err error) *InvalidRequestError {
	code := CodeInvalidAddress
	var addrErr *AddressError
	if errors.As(err, &addrErr) {
		code = addrErr.Code
	}
	return invalidRequest(code, message, err)
}

// From returns the sender addr-spec.
func (e *Envelope) From() string {
	return e.Sender.Email()
}

// To returns the recipient addr-specs in order.
func (e *Envelope) To() []string {
	out := make([]string, len(e.Recipients))
	for i, r := range e.Recipients {
		out[i] = r.Email()
	}
	return out
}
