package domain

import (
	"fmt"
)

// PipelineError is a fatal failure raised while running the pipeline.
// Every error in the run aborts it; the code records which precondition or
// collaborator failed.
type PipelineError struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	ReportID int64  `json:"report_id,omitempty"`
	Err      error  `json:"-"`
}

// Error implements the error interface
func (e *PipelineError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.ReportID != 0 {
		msg = fmt.Sprintf("%s (report %d)", msg, e.ReportID)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes the underlying cause.
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Error codes for the failure taxonomy
const (
	ErrConfiguration       = "CONFIGURATION_ERROR"
	ErrAnnotation          = "ANNOTATION_ERROR"
	ErrPersistenceConflict = "PERSISTENCE_CONFLICT"
	ErrStore               = "STORE_ERROR"
)

// ValidationError represents a configuration or input validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// NewPipelineError creates a PipelineError wrapping err.
func NewPipelineError(code, message string, reportID int64, err error) *PipelineError {
	return &PipelineError{
		Code:     code,
		Message:  message,
		ReportID: reportID,
		Err:      err,
	}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}
