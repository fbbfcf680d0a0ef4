// Package errors provides standardized error handling for the hiring workers
// and their BPMN integration.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Validation errors (caller's fault).
const (
	ErrCodeValidationFailed      ErrorCode = "VALIDATION_FAILED"
	ErrCodeIncompleteHireDetails ErrorCode = "INCOMPLETE_HIRE_DETAILS"
	ErrCodeInputParsingFailed    ErrorCode = "INPUT_PARSING_FAILED"
)

// Lookup errors.
const (
	ErrCodeApplicationNotFound ErrorCode = "APPLICATION_NOT_FOUND"
)

// Conflict errors. None of these are retried.
const (
	ErrCodeDuplicateApplication   ErrorCode = "DUPLICATE_APPLICATION"
	ErrCodeAlreadyAccepted        ErrorCode = "ALREADY_ACCEPTED"
	ErrCodeEmailAlreadyRegistered ErrorCode = "EMAIL_ALREADY_REGISTERED"
	ErrCodeInvalidTransition      ErrorCode = "INVALID_TRANSITION"
	ErrCodeInvalidState           ErrorCode = "INVALID_STATE"
	ErrCodeLinkedAccountExists    ErrorCode = "LINKED_ACCOUNT_EXISTS"
)

// Technical errors.
const (
	ErrCodeAllocationConflict     ErrorCode = "ALLOCATION_CONFLICT"
	ErrCodeDatabaseError          ErrorCode = "DATABASE_ERROR"
	ErrCodeLockTimeout            ErrorCode = "LOCK_TIMEOUT"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeInternal               ErrorCode = "INTERNAL_ERROR"
)

// Error categories used for BPMN mapping and metrics labels.
const (
	CategoryValidation = "VALIDATION"
	CategoryNotFound   = "NOT_FOUND"
	CategoryConflict   = "CONFLICT"
	CategoryTransient  = "TRANSIENT"
	CategoryInternal   = "INTERNAL"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Is reports whether target carries the same code, so the sentinels below
// can be matched with errors.Is.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is comparisons.
var (
	ErrValidation             = &StandardError{Code: ErrCodeValidationFailed}
	ErrIncompleteHireDetails  = &StandardError{Code: ErrCodeIncompleteHireDetails}
	ErrNotFound               = &StandardError{Code: ErrCodeApplicationNotFound}
	ErrDuplicateApplication   = &StandardError{Code: ErrCodeDuplicateApplication}
	ErrAlreadyAccepted        = &StandardError{Code: ErrCodeAlreadyAccepted}
	ErrEmailAlreadyRegistered = &StandardError{Code: ErrCodeEmailAlreadyRegistered}
	ErrInvalidTransition      = &StandardError{Code: ErrCodeInvalidTransition}
	ErrInvalidState           = &StandardError{Code: ErrCodeInvalidState}
	ErrLinkedAccountExists    = &StandardError{Code: ErrCodeLinkedAccountExists}
	ErrAllocationConflict     = &StandardError{Code: ErrCodeAllocationConflict}
	ErrDatabase               = &StandardError{Code: ErrCodeDatabaseError}
	ErrLockTimeout            = &StandardError{Code: ErrCodeLockTimeout}
)

// As extracts the first StandardError in err's chain.
func As(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// CodeOf returns the error code of err, or INTERNAL_ERROR when err is not a
// StandardError.
func CodeOf(err error) ErrorCode {
	if stdErr, ok := As(err); ok {
		return stdErr.Code
	}
	return ErrCodeInternal
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	for k, v := range e.ErrorVariables {
		vars[k] = v
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationError creates a non-retryable validation error.
func NewValidationError(details string) *StandardError {
	return newError(ErrCodeValidationFailed, "Input validation failed", details, false)
}

// NewInputParsingError creates a non-retryable error for unreadable job variables.
func NewInputParsingError(err error) *StandardError {
	return newError(ErrCodeInputParsingFailed, "Failed to parse job variables", err.Error(), false)
}

// NewIncompleteHireDetailsError lists the hire fields that were missing.
func NewIncompleteHireDetailsError(missing []string) *StandardError {
	e := newError(ErrCodeIncompleteHireDetails, "Hire details are incomplete",
		fmt.Sprintf("missing: %s", strings.Join(missing, ", ")), false)
	e.Metadata = map[string]interface{}{"missingFields": missing}
	return e
}

func NewApplicationNotFoundError(id int64) *StandardError {
	return newError(ErrCodeApplicationNotFound, "Application not found",
		fmt.Sprintf("applicationId: %d", id), false)
}

func NewDuplicateApplicationError(email string) *StandardError {
	return newError(ErrCodeDuplicateApplication, "An application with this email already exists",
		fmt.Sprintf("email: %s", email), false)
}

func NewAlreadyAcceptedError(id int64) *StandardError {
	return newError(ErrCodeAlreadyAccepted, "Offer has already been accepted for this application",
		fmt.Sprintf("applicationId: %d", id), false)
}

func NewEmailAlreadyRegisteredError(email string) *StandardError {
	return newError(ErrCodeEmailAlreadyRegistered, "A user account with this email already exists",
		fmt.Sprintf("email: %s", email), false)
}

func NewInvalidTransitionError(from, to string) *StandardError {
	e := newError(ErrCodeInvalidTransition, "Status transition is not allowed",
		fmt.Sprintf("from: %s, to: %s", from, to), false)
	e.Metadata = map[string]interface{}{"from": from, "to": to}
	return e
}

func NewInvalidStateError(operation, state string) *StandardError {
	return newError(ErrCodeInvalidState, "Application is not in a valid state for this operation",
		fmt.Sprintf("operation: %s, status: %s", operation, state), false)
}

func NewLinkedAccountExistsError(id, staffAccountID int64) *StandardError {
	return newError(ErrCodeLinkedAccountExists, "Application has a provisioned staff account",
		fmt.Sprintf("applicationId: %d, staffAccountId: %d", id, staffAccountID), false)
}

// NewAllocationConflictError creates a retryable error raised when two
// writers raced for the same sequence counter.
func NewAllocationConflictError(kind string, ownerID int64, err error) *StandardError {
	details := fmt.Sprintf("kind: %s, ownerId: %d", kind, ownerID)
	if err != nil {
		details += ", error: " + err.Error()
	}
	return newError(ErrCodeAllocationConflict, "Sequence allocation conflict", details, true)
}

// NewDatabaseError creates a retryable storage error.
func NewDatabaseError(operation string, err error) *StandardError {
	return newError(ErrCodeDatabaseError, "Database operation failed",
		fmt.Sprintf("operation: %s, error: %v", operation, err), true)
}

func NewLockTimeoutError(key string, err error) *StandardError {
	return newError(ErrCodeLockTimeout, "Could not acquire record lock",
		fmt.Sprintf("key: %s, error: %v", key, err), true)
}

// NewNotificationSendFailedError never leaves the notification package; it is
// logged and dropped.
func NewNotificationSendFailedError(notificationType string, err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, "Notification delivery failed",
		fmt.Sprintf("type: %s, error: %s", notificationType, err.Error()), true)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the recommended job retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseError,
		ErrCodeNotificationSendFailed:
		return 3

	case ErrCodeAllocationConflict,
		ErrCodeLockTimeout:
		return 2

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"errorCategory": GetErrorCategory(stdErr.Code),
		"timestamp":     stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           string(stdErr.Code),
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the taxonomy bucket of an error code.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeValidationFailed, ErrCodeIncompleteHireDetails, ErrCodeInputParsingFailed:
		return CategoryValidation
	case ErrCodeApplicationNotFound:
		return CategoryNotFound
	case ErrCodeDuplicateApplication, ErrCodeAlreadyAccepted, ErrCodeEmailAlreadyRegistered,
		ErrCodeInvalidTransition, ErrCodeInvalidState, ErrCodeLinkedAccountExists:
		return CategoryConflict
	case ErrCodeAllocationConflict, ErrCodeDatabaseError, ErrCodeLockTimeout, ErrCodeNotificationSendFailed:
		return CategoryTransient
	default:
		return CategoryInternal
	}
}

// Category returns the taxonomy bucket of any error.
func Category(err error) string {
	return GetErrorCategory(CodeOf(err))
}
