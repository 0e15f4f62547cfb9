package service

import (
	"net/http"

	"github.com/pkg/errors"
)

// Kind classifies pipeline failures.
type Kind int

const (
	KindModelUnavailable Kind = iota + 1
	KindValidation
	KindDecode
	KindInference
	KindEncode
)

func (k Kind) String() string {
	switch k {
	case KindModelUnavailable:
		return "ModelUnavailable"
	case KindValidation:
		return "ValidationError"
	case KindDecode:
		return "DecodeError"
	case KindInference:
		return "InferenceError"
	case KindEncode:
		return "EncodeError"
	default:
		return "UnknownError"
	}
}

// StatusCode maps a kind to its HTTP status: caller faults are 400, the rest 500.
func (k Kind) StatusCode() int {
	switch k {
	case KindValidation, KindDecode:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified failure with a client-facing message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Cause lets github.com/pkg/errors walk through classified errors.
func (e *Error) Cause() error {
	return e.Err
}

var (
	// ErrModelUnavailable is returned for every request when the model failed to load at startup.
	ErrModelUnavailable = &Error{Kind: KindModelUnavailable, Message: "Model not loaded. Please check the server logs."}
	// ErrNoImage is returned when the "image" field is absent.
	ErrNoImage = &Error{Kind: KindValidation, Message: "No image file provided"}
)

// NewValidationError reports a malformed request.
func NewValidationError(msg string, err error) *Error {
	return &Error{Kind: KindValidation, Message: msg, Err: err}
}

func newDecodeError(err error) *Error {
	return &Error{Kind: KindDecode, Message: "Failed to read or open image", Err: err}
}

func newInferenceError(err error) *Error {
	return &Error{Kind: KindInference, Message: "An error occurred during detection", Err: err}
}

func newEncodeError(err error) *Error {
	return &Error{Kind: KindEncode, Message: "Failed to encode annotated image", Err: err}
}

// KindOf extracts the kind of a classified error, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
