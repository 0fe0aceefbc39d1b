package service

import (
	"errors"
	"fmt"

	"github.com/mmynk/splitplus/internal/calculator"
	"github.com/mmynk/splitplus/internal/repository"
)

var (
	// ErrNotFound is returned when an expense or group does not exist.
	ErrNotFound = repository.ErrNotFound

	ErrEmptyDescription = errors.New("description is required")
	ErrEmptyGroupName   = errors.New("group name is required")
	ErrGroupRequired    = errors.New("group_id is required")
	ErrNotInvited       = errors.New("user has no pending invite for this group")
	ErrNoJoinRequest    = errors.New("user has not requested to join this group")
	ErrInvalidMirrorURL = errors.New("mirror URL must be an absolute http(s) URL")
)

// NotMemberError reports a user who is not an active member of the group.
type NotMemberError struct {
	GroupID string
	UserID  string
}

func (e *NotMemberError) Error() string {
	return fmt.Sprintf("user %s is not a member of group %s", e.UserID, e.GroupID)
}

// PersistenceError wraps a storage failure. Nothing was written when it is
// returned from a mutation.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsValidationError reports whether err was caused by bad caller input that
// should be corrected and resubmitted.
func IsValidationError(err error) bool {
	var notMember *NotMemberError
	return calculator.IsValidationError(err) ||
		errors.As(err, &notMember) ||
		errors.Is(err, ErrEmptyDescription) ||
		errors.Is(err, ErrEmptyGroupName) ||
		errors.Is(err, ErrGroupRequired) ||
		errors.Is(err, ErrNotInvited) ||
		errors.Is(err, ErrNoJoinRequest) ||
		errors.Is(err, ErrInvalidMirrorURL)
}

// storeErr passes not-found errors through and wraps anything else as a
// PersistenceError.
func storeErr(op string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}
