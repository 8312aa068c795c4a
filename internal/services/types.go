package services

import (
	"errors"
	"strings"
)

type ErrorCode string

const (
	ErrorInvalid      ErrorCode = "invalid"
	ErrorNotFound     ErrorCode = "not_found"
	ErrorConflict     ErrorCode = "conflict"
	ErrorUnauthorized ErrorCode = "unauthorized"
)

type ServiceError struct {
	Code    ErrorCode
	Message string
}

func (e *ServiceError) Error() string { return e.Message }

func NewInvalidError(msg string) error  { return &ServiceError{Code: ErrorInvalid, Message: msg} }
func NewNotFoundError(msg string) error { return &ServiceError{Code: ErrorNotFound, Message: msg} }
func NewConflictError(msg string) error { return &ServiceError{Code: ErrorConflict, Message: msg} }
func NewUnauthorizedError(msg string) error {
	return &ServiceError{Code: ErrorUnauthorized, Message: msg}
}

func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// ValidationCode classifies survey document validation failures.
type ValidationCode string

const (
	ValidationMalformed             ValidationCode = "malformed_document"
	ValidationMissingRoot           ValidationCode = "missing_root"
	ValidationMissingGroups         ValidationCode = "missing_groups"
	ValidationGroupMissingQuestions ValidationCode = "group_missing_questions"
)

// ValidationError reports why an uploaded survey document was rejected.
// Details keep the Danish wording shown to the admin.
type ValidationError struct {
	Code    ValidationCode `json:"code"`
	Details []string       `json:"details"`
}

func (e *ValidationError) Error() string { return strings.Join(e.Details, "; ") }

func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
