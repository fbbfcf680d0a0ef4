package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardError_IsMatchesByCode(t *testing.T) {
	err := NewAlreadyAcceptedError(42)
	wrapped := fmt.Errorf("accept offer: %w", err)

	assert.True(t, stderrors.Is(wrapped, ErrAlreadyAccepted))
	assert.False(t, stderrors.Is(wrapped, ErrInvalidState))
	assert.Contains(t, err.Error(), "ALREADY_ACCEPTED")
	assert.Contains(t, err.Error(), "applicationId: 42")
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrCodeDuplicateApplication, CodeOf(NewDuplicateApplicationError("a@x.com")))
	assert.Equal(t, ErrCodeInternal, CodeOf(stderrors.New("boom")))
}

func TestGetErrorCategory(t *testing.T) {
	tests := []struct {
		code     ErrorCode
		expected string
	}{
		{ErrCodeValidationFailed, CategoryValidation},
		{ErrCodeIncompleteHireDetails, CategoryValidation},
		{ErrCodeApplicationNotFound, CategoryNotFound},
		{ErrCodeDuplicateApplication, CategoryConflict},
		{ErrCodeAlreadyAccepted, CategoryConflict},
		{ErrCodeEmailAlreadyRegistered, CategoryConflict},
		{ErrCodeInvalidTransition, CategoryConflict},
		{ErrCodeInvalidState, CategoryConflict},
		{ErrCodeAllocationConflict, CategoryTransient},
		{ErrCodeNotificationSendFailed, CategoryTransient},
		{ErrorCode("SOMETHING_ELSE"), CategoryInternal},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.expected, GetErrorCategory(tt.code))
		})
	}
}

func TestConvertToBPMNError(t *testing.T) {
	t.Run("retryable code keeps retry budget", func(t *testing.T) {
		bpmnErr := ConvertToBPMNError(NewAllocationConflictError("INVOICE", 7, stderrors.New("serialization failure")))

		assert.Equal(t, "ALLOCATION_CONFLICT", bpmnErr.Code)
		assert.True(t, bpmnErr.Retryable)
		assert.Equal(t, 2, bpmnErr.Retries)
		assert.Equal(t, CategoryTransient, bpmnErr.ErrorVariables["errorCategory"])
	})

	t.Run("business errors are never retried", func(t *testing.T) {
		bpmnErr := ConvertToBPMNError(NewInvalidTransitionError("REJECTED", "HIRED"))

		assert.Equal(t, "INVALID_TRANSITION", bpmnErr.Code)
		assert.Equal(t, 0, bpmnErr.Retries)
		assert.Equal(t, "REJECTED", bpmnErr.ErrorVariables["from"])
		assert.Equal(t, "HIRED", bpmnErr.ErrorVariables["to"])
	})

	t.Run("non-retryable instance of retryable code", func(t *testing.T) {
		stdErr := NewDatabaseError("insert", stderrors.New("x"))
		stdErr.Retryable = false

		assert.Equal(t, 0, ConvertToBPMNError(stdErr).Retries)
	})
}

func TestIncompleteHireDetailsMetadata(t *testing.T) {
	err := NewIncompleteHireDetailsError([]string{"assignedRole", "stipend"})

	require.NotNil(t, err.Metadata)
	assert.Equal(t, []string{"assignedRole", "stipend"}, err.Metadata["missingFields"])
	assert.Contains(t, err.Details, "assignedRole, stipend")
	assert.True(t, stderrors.Is(err, ErrIncompleteHireDetails))
}

func TestNormalize(t *testing.T) {
	plain := stderrors.New("unexpected")
	normalized := Normalize(plain)

	assert.Equal(t, ErrCodeInternal, normalized.Code)
	assert.Equal(t, "unexpected", normalized.Details)

	original := NewApplicationNotFoundError(1)
	assert.Same(t, original, Normalize(fmt.Errorf("wrap: %w", original)))
}

func TestBPMNError_ToErrorVariables(t *testing.T) {
	bpmnErr := &BPMNError{
		Code:           "DUPLICATE_APPLICATION",
		Message:        "dup",
		Details:        "email: a@x.com",
		ErrorVariables: map[string]interface{}{"extra": 1},
	}

	vars := bpmnErr.ToErrorVariables()
	assert.Equal(t, "DUPLICATE_APPLICATION", vars["errorCode"])
	assert.Equal(t, "dup", vars["errorMessage"])
	assert.Equal(t, 1, vars["extra"])
	assert.Equal(t, false, vars["retryable"])
}
