// Package apperr carries a small error taxonomy keyed by gRPC status codes so that
// services, workers and the HTTP layer agree on what a failure means.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type Error struct {
	Code codes.Code
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) GRPCStatus() *status.Status { return status.New(e.Code, e.Msg) }

func newf(code codes.Code, format string, args ...any) error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) error {
	return newf(codes.InvalidArgument, format, args...)
}

func NotFound(format string, args ...any) error {
	return newf(codes.NotFound, format, args...)
}

func Unauthenticated(format string, args ...any) error {
	return newf(codes.Unauthenticated, format, args...)
}

// Unauthorized is an authenticated caller lacking permission.
func Unauthorized(format string, args ...any) error {
	return newf(codes.PermissionDenied, format, args...)
}

func AlreadyExists(format string, args ...any) error {
	return newf(codes.AlreadyExists, format, args...)
}

// Conflict is an operation invalid for the current state of a resource.
func Conflict(format string, args ...any) error {
	return newf(codes.FailedPrecondition, format, args...)
}

// Provider wraps a failure from a backing store or external service.
func Provider(err error, msg string) error {
	return &Error{Code: codes.Unavailable, Msg: msg, Err: err}
}

func Internal(err error, msg string) error {
	return &Error{Code: codes.Internal, Msg: msg, Err: err}
}

// CodeOf resolves the code of err through wrapping; unknown errors are Internal.
func CodeOf(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	if st, ok := status.FromError(err); ok {
		return st.Code()
	}
	return codes.Internal
}

func Is(err error, code codes.Code) bool { return CodeOf(err) == code }

// Message is the client-safe text for err. Infrastructure failures are not exposed.
func Message(err error) string {
	switch CodeOf(err) {
	case codes.Internal, codes.Unavailable, codes.Unknown, codes.DataLoss:
		return "something went wrong, please try again"
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Msg
	}
	if st, ok := status.FromError(err); ok {
		return st.Message()
	}
	return err.Error()
}

func HTTPStatus(code codes.Code) int {
	switch code {
	case codes.OK:
		return http.StatusOK
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.NotFound:
		return http.StatusNotFound
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.AlreadyExists, codes.FailedPrecondition, codes.Aborted:
		return http.StatusConflict
	case codes.Unimplemented:
		return http.StatusNotImplemented
	case codes.DeadlineExceeded, codes.ResourceExhausted, codes.Unavailable:
		return http.StatusServiceUnavailable
	case codes.Internal, codes.DataLoss, codes.Unknown:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}
