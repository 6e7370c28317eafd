package errors

import (
	"errors"
	"fmt"
)

// ReciprocalError reports that the primary write of an assignment-changing
// operation was committed but the compensating write on the other entity
// was not.
type ReciprocalError struct {
	Op     string
	TaskID string
	UserID string
	Err    error
}

func (e *ReciprocalError) Error() string {
	return fmt.Sprintf("reciprocal update %s failed (task %s, user %s): %v", e.Op, e.TaskID, e.UserID, e.Err)
}

func (e *ReciprocalError) Unwrap() error {
	return e.Err
}

func AsReciprocal(err error) (*ReciprocalError, bool) {
	var rec *ReciprocalError
	if errors.As(err, &rec) {
		return rec, true
	}
	return nil, false
}
