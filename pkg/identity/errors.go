package identity

import "github.com/naughtyden-us/naughty-den/pkg/apperr"

// Provider error codes, translated by apperr.Translate.
var (
	errUserNotFound  = apperr.Provider("auth/user-not-found", "no account for this email")
	errWrongPassword = apperr.Provider("auth/wrong-password", "wrong password")
	errEmailInUse    = apperr.Provider("auth/email-already-in-use", "email already registered")
	errWeakPassword  = apperr.Provider("auth/weak-password", "password too weak")
	errInvalidEmail  = apperr.Provider("auth/invalid-email", "Please enter a valid email address")
	errInvalidCred   = apperr.Provider("auth/invalid-credential", "missing provider subject")
	errBadToken      = apperr.Provider("auth/invalid-custom-token", "The custom token format is incorrect")
	errTokenDisabled = apperr.Provider("auth/operation-not-allowed", "Custom token sign in is disabled")

	errProfileMissing = apperr.Provider("storage/not-found", "profile not found")
	errProfileExists  = apperr.Provider("storage/already-exists", "profile already exists")
)
