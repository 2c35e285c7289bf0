package core

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// RevisionError is the named failure of one plan revision computation.
// A failure never crosses from one (date, revision) unit into another.
type RevisionError struct {
	SchoolNumber string
	Date         time.Time
	Revision     time.Time
	Err          error
}

func NewRevisionError(schoolNumber string, date, revision time.Time, err error) error {
	return &RevisionError{SchoolNumber: schoolNumber, Date: date, Revision: revision, Err: err}
}

func (err RevisionError) Error() string {
	return fmt.Sprintf(
		"school %s: plan revision %s@%s: %v",
		err.SchoolNumber, err.Date.Format("2006-01-02"), err.Revision.Format(time.RFC3339), err.Err,
	)
}

func (err RevisionError) Unwrap() error { return err.Err }

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
