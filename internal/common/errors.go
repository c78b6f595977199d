// Package common holds errors and helpers shared by every feature.
// Handlers map these sentinels onto HTTP statuses, so the message text
// is what the client sees.
package common

import (
	"errors"
	"fmt"
)

// Validation errors. Client gets a generic 400.
var (
	// ErrValidation marks malformed request input.
	ErrValidation = errors.New("Invalid request")
	// ErrInvalidAmount rejects zero or wrongly signed credit deltas.
	ErrInvalidAmount = errors.New("Invalid amount")
)

// Economy
var (
	ErrInsufficientCredits = errors.New("Insufficient credits")
	ErrDailyAlreadyClaimed = errors.New("Daily reward already claimed")
)

// Quests
var (
	ErrQuestNotCompleted   = errors.New("Quest not completed")
	ErrQuestAlreadyClaimed = errors.New("Quest reward already claimed")
)

// Gallery
var (
	ErrAlreadyPublished = errors.New("Item already published")
)

// Admin
var (
	ErrTooManyAttempts = errors.New("Too many attempts")
	ErrWrongPassword   = errors.New("Invalid password")
	ErrSessionExpired  = errors.New("Admin session expired")
)

var (
	// ErrNotFound covers both missing rows and rows owned by someone else.
	ErrNotFound = errors.New("Not found")
	// ErrUnauthorized is returned when no valid session accompanies the request.
	ErrUnauthorized = errors.New("Unauthorized")
	// ErrUpstream wraps failures of external collaborators (AI API, object storage).
	ErrUpstream = errors.New("Upstream service failed")
)

// businessErrors are rule violations whose message is shown verbatim with 400.
var businessErrors = []error{
	ErrInsufficientCredits,
	ErrDailyAlreadyClaimed,
	ErrQuestNotCompleted,
	ErrQuestAlreadyClaimed,
	ErrAlreadyPublished,
	ErrTooManyAttempts,
	ErrWrongPassword,
}

// BusinessError returns the rule-violation sentinel err wraps, if any.
// Its message is safe to show the client as is.
func BusinessError(err error) (error, bool) {
	for _, target := range businessErrors {
		if errors.Is(err, target) {
			return target, true
		}
	}
	return nil, false
}

// IsValidationError reports whether err stems from bad client input.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrInvalidAmount)
}

// Invalid builds a validation error carrying a detail message.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}
