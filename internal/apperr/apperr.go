// Package apperr defines the sentinel errors shared by every layer of the
// procedure service. Callers match them with errors.Is; the message carried
// by the wrapping error is safe to show to the end user.
package apperr

import "errors"

var (
	// ErrValidation marks bad or missing user input.
	ErrValidation = errors.New("validation error")

	// ErrForbidden marks an authenticated principal acting outside its permissions.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound marks an unknown procedure id or document name.
	ErrNotFound = errors.New("not found")

	// ErrIllegalState marks an operation attempted in the wrong lifecycle state,
	// e.g. resending a procedure that is not rejected.
	ErrIllegalState = errors.New("illegal state")

	// ErrIllegalTransition marks a backward state transition request.
	ErrIllegalTransition = errors.New("illegal transition")

	// ErrInvalidState marks a transition request naming an unrecognized state.
	ErrInvalidState = errors.New("invalid state")

	// ErrIntegrity marks tampered ciphertext or unusable key material.
	ErrIntegrity = errors.New("integrity error")

	// ErrConflict marks a duplicate procedure id.
	ErrConflict = errors.New("conflict")
)
