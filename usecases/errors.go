package usecases

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures so transports can pick a status code.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindInvalidInput
	KindInvalidCredentials
	KindUnauthorized
	KindNotFound
	KindForbidden
	KindDuplicateEmail
	KindAlreadyCollaborator
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidInput:
		return "InvalidInput"
	case KindInvalidCredentials:
		return "InvalidCredentials"
	case KindUnauthorized:
		return "Unauthorized"
	case KindNotFound:
		return "NotFound"
	case KindForbidden:
		return "Forbidden"
	case KindDuplicateEmail:
		return "DuplicateEmail"
	case KindAlreadyCollaborator:
		return "AlreadyCollaborator"
	default:
		return "Internal"
	}
}

// Error is returned by every use case. Message is safe to show to clients;
// Err, when set, is the underlying cause.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// KindOf reports the kind of err, or KindInternal for foreign errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
