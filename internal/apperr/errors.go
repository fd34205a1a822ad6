package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can react without string matching.
type Kind string

const (
	KindInvalidQuery  Kind = "INVALID_QUERY"
	KindOffline       Kind = "OFFLINE"
	KindTimeout       Kind = "TIMEOUT"
	KindProviderError Kind = "PROVIDER_ERROR"
	KindParseError    Kind = "PARSE_ERROR"
	KindConfigError   Kind = "CONFIG_ERROR"

	// KindCanceled marks a request abandoned by its caller. It is never shown to users.
	KindCanceled Kind = "CANCELED"
)

// Error is the tagged failure value returned by gateways and upstream clients.
type Error struct {
	Kind    Kind
	Status  int    // HTTP status, zero when no response was received
	Message string // provider or validation message, may be empty
	Err     error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

func Provider(status int, message string) *Error {
	return &Error{Kind: KindProviderError, Status: status, Message: message}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
