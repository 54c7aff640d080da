package api

import (
	"errors"
	"fmt"
)

type Kind int

const (
	// KindTransport covers network failures, timeouts and an open breaker.
	KindTransport Kind = iota + 1
	// KindServer is a response the server rejected, usually with a message.
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

type Error struct {
	Op      string
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("%s: %s (status %d)", e.Op, e.Message, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s error (status %d)", e.Op, e.Kind, e.Status)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// MessageOf returns the server provided message carried by err, or "".
func MessageOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Message
	}
	return ""
}

func IsTransport(err error) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == KindTransport
}

func IsServer(err error) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == KindServer
}
