package utils

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

var ErrorRecordNotFound = errors.New("record not found")

func ErrorPanic(err error) {
	if err != nil {
		panic(err)
	}
}

type ErrorKind string

const (
	// ErrorKindValidation: domain-rule violation the caller can fix
	// (invalid quantity, invalid target status, insufficient stock, ...).
	ErrorKindValidation ErrorKind = "Validation"
	// ErrorKindNotFound: resource does not exist or belongs to another
	// organization. Both cases look identical to the caller.
	ErrorKindNotFound ErrorKind = "NotFound"
	// ErrorKindConflict: unique constraint violation (duplicate serial
	// number, colliding item identifier).
	ErrorKindConflict ErrorKind = "Conflict"
	// ErrorKindInternal: everything else. Always rolled back and logged.
	ErrorKindInternal ErrorKind = "Internal"
)

// DomainError carries a machine-readable kind so the API layer can map a
// failure to a status code without matching on message text.
type DomainError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *DomainError) Unwrap() error { return e.Err }

func NewValidationError(message string) error {
	return &DomainError{Kind: ErrorKindValidation, Message: message}
}

func NewNotFoundError(message string) error {
	return &DomainError{Kind: ErrorKindNotFound, Message: message}
}

func NewConflictError(message string) error {
	return &DomainError{Kind: ErrorKindConflict, Message: message}
}

func WrapInternalError(err error) error {
	if err == nil {
		return nil
	}
	return &DomainError{Kind: ErrorKindInternal, Err: err}
}

// KindOfError classifies any error into an ErrorKind. gorm/sentinel
// not-found errors and MySQL duplicate-key errors (1062) are recognized even
// when they bubble up untagged.
func KindOfError(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	if errors.Is(err, ErrorRecordNotFound) || errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorKindNotFound
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
		return ErrorKindConflict
	}
	return ErrorKindInternal
}

func IsValidationError(err error) bool { return KindOfError(err) == ErrorKindValidation }
func IsNotFoundError(err error) bool   { return KindOfError(err) == ErrorKindNotFound }
func IsConflictError(err error) bool   { return KindOfError(err) == ErrorKindConflict }
