package utils

import (
	"errors"
	"fmt"
	"strings"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

var (
	ErrorRecordNotFound = errors.New("record not found")
	ErrForbidden        = errors.New("operation not permitted for the current user")
	ErrDuplicateEntry   = errors.New("duplicate entry")
)

// ValidationError is a rejected input. Nothing has been written when it is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func NewValidationError(field string, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// CommitStepError reports which step of a unit of work failed. The whole unit was rolled back.
type CommitStepError struct {
	Step string
	Err  error
}

func (e *CommitStepError) Error() string {
	return "commit failed at step " + e.Step + ": " + e.Err.Error()
}

func (e *CommitStepError) Unwrap() error {
	return e.Err
}

// IsRecordNotFound matches both our sentinel and gorm's.
func IsRecordNotFound(err error) bool {
	return errors.Is(err, ErrorRecordNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicateKey recognises unique constraint violations across the supported drivers.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, ErrDuplicateEntry) {
		return true
	}
	var myErr *mysqlDriver.MySQLError
	if errors.As(err, &myErr) && myErr.Number == 1062 {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
