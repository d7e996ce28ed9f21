package smtppost

import (
	"errors"
	"fmt"
	"strings"
)

// Codes carried by InvalidRequestError.
const (
	CodeInvalidAddress = "invalid_address"
	CodeEmptyAddress   = "empty_address"
	CodeNoRecipients   = "no_recipients"
	CodeUnseekable     = "unseekable_data"
	CodeUnreadable     = "unreadable_data"
	CodeNoData         = "missing_data"
	CodeUnparsable     = "unparsable_data"
)

// InvalidRequestError reports caller-supplied data that cannot be sent as
// given. Retrying the same request fails the same way.
type InvalidRequestError struct {
	Message string
	Code    string
	Err     error
}

func (e *InvalidRequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *InvalidRequestError) Unwrap() error {
	return e.Err
}

func invalidRequest(code, message string, err error) *InvalidRequestError {
	return &InvalidRequestError{Message: message, Code: code, Err: err}
}

// SendError reports a well-formed message the backend could not deliver.
// From and To identify the envelope for logging.
type SendError struct {
	Backend string
	From    string
	To      []string
	Err     error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("%s: failed to send message from %s to %s: %v",
		e.Backend, e.From, strings.Join(e.To, ", "), e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// IsInvalidRequest reports whether err is, or wraps, an *InvalidRequestError.
func IsInvalidRequest(err error) bool {
	var target *InvalidRequestError
	return errors.As(err, &target)
}

// IsSendError reports whether err is, or wraps, a *SendError.
func IsSendError(err error) bool {
	var target *SendError
	return errors.As(err, &target)
}
