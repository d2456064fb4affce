package service

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

var errValidation = errors.New("service: validation error")

// ErrOrderMismatch is returned by reorder operations when the submitted id
// list is not a permutation of the course's live blocks.
var ErrOrderMismatch = errors.New("service: block order mismatch")

type validationError struct {
	message string
}

func (e *validationError) Error() string {
	return e.message
}

func (e *validationError) Unwrap() error {
	return errValidation
}

func newValidationError(format string, args ...interface{}) error {
	message := strings.TrimSpace(fmt.Sprintf(format, args...))
	if message == "" {
		message = "invalid input"
	}
	return &validationError{message: message}
}

// IsValidationError reports whether the provided error indicates invalid user input.
func IsValidationError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, errValidation)
}

// PublishError carries the full list of issues that block publishing a course.
type PublishError struct {
	Issues []Issue
}

// Issue is a single publish-blocking problem, tied to a block when relevant.
type Issue struct {
	BlockID uint   `json:"block_id,omitempty"`
	Message string `json:"message"`
}

func (e *PublishError) Error() string {
	if len(e.Issues) == 0 {
		return "course is not publishable"
	}
	messages := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		messages[i] = issue.Message
	}
	return "course is not publishable: " + strings.Join(messages, "; ")
}

// IsPublishError reports whether the error is a publish validation failure and
// returns it for issue extraction.
func IsPublishError(err error) (*PublishError, bool) {
	var publishErr *PublishError
	if errors.As(err, &publishErr) {
		return publishErr, true
	}
	return nil, false
}

func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var sqlState interface{ SQLState() string }
	if errors.As(err, &sqlState) {
		return sqlState.SQLState() == "23505"
	}

	return false
}
