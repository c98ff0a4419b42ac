package apperr

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	AuthRequired           Code = "AUTH_REQUIRED"
	AuthInvalidCredentials Code = "AUTH_INVALID_CREDENTIALS"
	AuthEmailExists        Code = "AUTH_EMAIL_ALREADY_EXISTS"
	AuthWeakPassword       Code = "AUTH_WEAK_PASSWORD"
	AuthUserNotFound       Code = "AUTH_USER_NOT_FOUND"

	ValidationRequiredField   Code = "VALIDATION_REQUIRED_FIELD"
	ValidationInvalidEmail    Code = "VALIDATION_INVALID_EMAIL"
	ValidationInvalidPassword Code = "VALIDATION_INVALID_PASSWORD"
	ValidationFileTooLarge    Code = "VALIDATION_FILE_TOO_LARGE"
	ValidationInvalidFileType Code = "VALIDATION_INVALID_FILE_TYPE"

	NetworkError   Code = "NETWORK_ERROR"
	NetworkTimeout Code = "NETWORK_TIMEOUT"
	APIError       Code = "API_ERROR"

	StorageError            Code = "STORAGE_ERROR"
	StoragePermissionDenied Code = "STORAGE_PERMISSION_DENIED"
	StorageNotFound         Code = "STORAGE_NOT_FOUND"

	ContentNotFound         Code = "CONTENT_NOT_FOUND"
	ContentAccessDenied     Code = "CONTENT_ACCESS_DENIED"
	ContentModerationFailed Code = "CONTENT_MODERATION_FAILED"

	SystemError  Code = "SYSTEM_ERROR"
	UnknownError Code = "UNKNOWN_ERROR"
)

var messages = map[Code]string{
	AuthRequired:           "You must be logged in to perform this action",
	AuthInvalidCredentials: "Invalid email or password",
	AuthEmailExists:        "An account with this email already exists",
	AuthWeakPassword:       "Password must be at least 6 characters long",
	AuthUserNotFound:       "No account found with this email",

	ValidationRequiredField:   "This field is required",
	ValidationInvalidEmail:    "Please enter a valid email address",
	ValidationInvalidPassword: "Password must be at least 6 characters",
	ValidationFileTooLarge:    "File size must be less than 5MB",
	ValidationInvalidFileType: "Invalid file type. Only images are allowed",

	NetworkError:   "Network error. Please check your connection",
	NetworkTimeout: "Request timed out. Please try again",
	APIError:       "API error occurred. Please try again",

	StorageError:            "Database error occurred",
	StoragePermissionDenied: "You do not have permission to perform this action",
	StorageNotFound:         "Requested resource not found",

	ContentNotFound:         "Content not found",
	ContentAccessDenied:     "You do not have access to this content",
	ContentModerationFailed: "Content moderation failed",

	SystemError:  "System error occurred",
	UnknownError: "An unexpected error occurred",
}

// Message returns the fixed human-readable message for c.
func (c Code) Message() string {
	if m, ok := messages[c]; ok {
		return m
	}
	return messages[UnknownError]
}

// HTTPStatus maps a code to the response status used by the API.
func (c Code) HTTPStatus() int {
	switch c {
	case AuthRequired:
		return http.StatusUnauthorized
	case AuthInvalidCredentials, AuthUserNotFound:
		return http.StatusUnauthorized
	case AuthEmailExists:
		return http.StatusConflict
	case AuthWeakPassword,
		ValidationRequiredField, ValidationInvalidEmail, ValidationInvalidPassword,
		ValidationInvalidFileType, ContentModerationFailed:
		return http.StatusBadRequest
	case ValidationFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case StoragePermissionDenied, ContentAccessDenied:
		return http.StatusForbidden
	case StorageNotFound, ContentNotFound:
		return http.StatusNotFound
	case NetworkError, APIError:
		return http.StatusBadGateway
	case NetworkTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Codes lists every known code.
func Codes() []Code {
	out := make([]Code, 0, len(messages))
	for c := range messages {
		out = append(out, c)
	}
	return out
}
