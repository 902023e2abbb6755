package game

import (
	"errors"
	"fmt"
)

// Error classes. Every error returned by the state machine wraps exactly one of these.
var (
	ErrValidation    = errors.New("validation error")
	ErrResource      = errors.New("resource error")
	ErrAuthorization = errors.New("authorization error")
	ErrProtocol      = errors.New("protocol error")
)

// Deck errors.
var (
	ErrInsufficientCards = &Error{Class: ErrResource, Message: "not enough cards in the draw pile to deal"}
	ErrDeckExhausted     = &Error{Class: ErrResource, Message: "draw and discard piles are both empty"}
)

// Error is a classified game error. Message is safe to send to clients.
type Error struct {
	Class   error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Class
}

func invalidf(format string, args ...interface{}) error {
	return &Error{Class: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

func protocolf(format string, args ...interface{}) error {
	return &Error{Class: ErrProtocol, Message: fmt.Sprintf(format, args...)}
}

// Message extracts the client-facing message of err.
func Message(err error) string {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Message
	}
	return err.Error()
}
