package apperr

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/naughtyden-us/naughty-den/pkg/state/logger"
)

// Error is a classified application error.
type Error struct {
	Code    Code           `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Cause   error          `json:"-"`
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Cause }

// Is matches another *Error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New builds an error carrying the fixed message for code.
func New(code Code) *Error {
	return &Error{Code: code, Message: code.Message()}
}

// Newf builds an error with a custom message.
func Newf(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap classifies cause under code, keeping the fixed message.
func Wrap(code Code, cause error) *Error {
	return &Error{Code: code, Message: code.Message(), Cause: cause}
}

// WithDetails returns a copy of e carrying details.
func (e *Error) WithDetails(details map[string]any) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

// Coded is implemented by collaborator errors that carry a provider code
// such as "auth/user-not-found" or "storage/permission-denied".
type Coded interface {
	error
	ProviderCode() string
}

// ProviderError is the concrete Coded error returned by local collaborators.
type ProviderError struct {
	Code string
	Msg  string
}

func (e *ProviderError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return e.Code
}

func (e *ProviderError) ProviderCode() string { return e.Code }

// Provider builds a ProviderError.
func Provider(code, msg string) *ProviderError {
	return &ProviderError{Code: code, Msg: msg}
}

// Translate maps any error to a taxonomy entry. nil maps to nil.
func Translate(err error) *Error {
	if err == nil {
		return nil
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}

	var coded Coded
	if errors.As(err, &coded) {
		code := coded.ProviderCode()
		switch {
		case strings.HasPrefix(code, "auth/"):
			return translateAuth(code, coded)
		case strings.HasPrefix(code, "storage/"):
			return translateStorage(code, coded)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Wrap(NetworkTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return Wrap(NetworkTimeout, err)
		}
		return Wrap(NetworkError, err)
	}

	msg := err.Error()
	if msg == "" {
		msg = UnknownError.Message()
	}
	logger.Debug("error_unclassified", "error", msg)
	return &Error{Code: UnknownError, Message: msg, Cause: err}
}

func translateAuth(code string, cause error) *Error {
	switch code {
	case "auth/user-not-found":
		return Wrap(AuthUserNotFound, cause)
	case "auth/wrong-password", "auth/invalid-credential":
		return Wrap(AuthInvalidCredentials, cause)
	case "auth/email-already-in-use":
		return Wrap(AuthEmailExists, cause)
	case "auth/weak-password":
		return Wrap(AuthWeakPassword, cause)
	default:
		msg := cause.Error()
		if msg == "" || msg == code {
			msg = AuthRequired.Message()
		}
		return &Error{Code: AuthRequired, Message: msg, Cause: cause}
	}
}

func translateStorage(code string, cause error) *Error {
	switch code {
	case "storage/permission-denied":
		return Wrap(StoragePermissionDenied, cause)
	case "storage/not-found":
		return Wrap(StorageNotFound, cause)
	default:
		return Wrap(StorageError, cause)
	}
}
