package services

import (
	"fmt"

	"github.com/pkg/errors"
)

type Kind int

const (
	KindServerFault Kind = iota
	KindInvalidRequest
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindInvalidRequest:
		return "invalid_request"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	}
	return "server_fault"
}

// Error is returned by every service operation. Message is safe to show to
// clients; Err carries the underlying cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func invalid(msg string) error {
	return &Error{Kind: KindInvalidRequest, Message: msg}
}

func notFound(msg string) error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func conflict(msg string) error {
	return &Error{Kind: KindConflict, Message: msg}
}

func fault(err error, msg string) error {
	return &Error{Kind: KindServerFault, Message: "Server Error", Err: errors.Wrap(err, msg)}
}

// KindOf classifies err; anything that is not a service Error is a server fault.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindServerFault
}

// MessageOf returns the client-facing message for err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Server Error"
}
