package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind tags every failure the store adapter and the services can produce.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindMalformedInput
	KindConflict
	KindReciprocalUpdate
	KindStoreUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindMalformedInput:
		return "malformed_input"
	case KindConflict:
		return "conflict"
	case KindReciprocalUpdate:
		return "reciprocal_update"
	case KindStoreUnavailable:
		return "store_unavailable"
	default:
		return "internal"
	}
}

type Exception struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Exception) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Exception) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status for err. A reciprocal failure never
// decides the status on its own, so it maps like an internal error here and
// handlers inspect it with AsReciprocal first.
func StatusCode(err error) int {
	switch KindOf(err) {
	case KindValidation, KindMalformedInput:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func KindOf(err error) Kind {
	var rec *ReciprocalError
	if errors.As(err, &rec) {
		return KindReciprocalUpdate
	}
	var appErr *Exception
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Message returns the client-facing message for err. Store and internal
// failures never leak their cause.
func Message(err error) string {
	var appErr *Exception
	if !errors.As(err, &appErr) {
		return "Server error"
	}
	switch appErr.Kind {
	case KindStoreUnavailable, KindInternal:
		return "Server error"
	}
	return appErr.Message
}

func Validation(message string) *Exception {
	return &Exception{Kind: KindValidation, Message: message}
}

func Malformed(message string, err error) *Exception {
	return &Exception{Kind: KindMalformedInput, Message: message, Err: err}
}

func Unavailable(err error) *Exception {
	return &Exception{Kind: KindStoreUnavailable, Message: "store unavailable", Err: err}
}
