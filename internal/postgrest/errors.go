package postgrest

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error kinds. Every failed remote call carries exactly one of these as its
// Kind, so callers match with errors.Is regardless of the status code that
// produced it.
var (
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrTransport    = errors.New("transport failure")
)

// Error is the normalised failure of one remote call.
type Error struct {
	Op      string
	Status  int    // 0 when no response was received
	Code    string // PostgREST or Postgres error code, if reported
	Message string
	Kind    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")
	b.WriteString(e.Detail())
	if e.Status > 0 {
		fmt.Fprintf(&b, " (%d", e.Status)
		if e.Code != "" {
			b.WriteString(" " + e.Code)
		}
		b.WriteString(")")
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Kind }

// Detail is the human-readable part of the error, without the operation name.
func (e *Error) Detail() string {
	if strings.TrimSpace(e.Message) != "" {
		return e.Message
	}
	if e.Kind != nil {
		return e.Kind.Error()
	}
	return "unknown error"
}

// apiErrorBody is the JSON error document PostgREST returns on 4xx/5xx.
type apiErrorBody struct {
	Code    string  `json:"code"`
	Message string  `json:"message"`
	Details *string `json:"details"`
	Hint    *string `json:"hint"`
}

func (b apiErrorBody) text() string {
	msg := strings.TrimSpace(b.Message)
	if b.Details != nil && strings.TrimSpace(*b.Details) != "" {
		if msg == "" {
			return strings.TrimSpace(*b.Details)
		}
		msg += ": " + strings.TrimSpace(*b.Details)
	}
	return msg
}

// classify maps a response status and error code onto an error kind.
// Codes win over statuses: PostgREST reports unique violations as 409 but
// some proxies rewrite them to 400.
func classify(status int, code string) error {
	switch code {
	case "23505":
		return ErrConflict
	case "22P02", "23502", "23514", "PGRST102", "PGRST204":
		return ErrValidation
	case "PGRST301", "PGRST302", "42501":
		return ErrUnauthorized
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrUnauthorized
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusConflict:
		return ErrConflict
	case status == http.StatusRequestTimeout || status == http.StatusTooManyRequests:
		return ErrTransport
	case status >= 500:
		return ErrTransport
	case status >= 400:
		return ErrValidation
	default:
		return ErrTransport
	}
}
