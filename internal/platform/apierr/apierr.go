package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error carries the HTTP status and stable code a handler should answer with.
type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

// Public reports whether the wrapped message may be shown to clients.
// 5xx messages are replaced with a generic one.
func (e *Error) Public() bool {
	return e != nil && e.Status < http.StatusInternalServerError
}

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// Rule maps a sentinel onto a status and code.
type Rule struct {
	Target error
	Status int
	Code   string
}

// Classify returns the first rule matching err via errors.Is, or a 500 with
// fallbackCode. An *Error already in the chain wins over the rules.
func Classify(err error, rules []Rule, fallbackCode string) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	for _, r := range rules {
		if errors.Is(err, r.Target) {
			return New(r.Status, r.Code, err)
		}
	}
	return New(http.StatusInternalServerError, fallbackCode, err)
}
