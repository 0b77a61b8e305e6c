// Package errors provides the standardized error taxonomy for the
// workflow engine: validation, transport, guard, and partial-batch
// failures, each with a stable code and retryability.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ==========================
// 1. Error Codes
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeGuardViolation   ErrorCode = "GUARD_VIOLATION"

	ErrCodeCampaignCreateFailed ErrorCode = "CAMPAIGN_CREATE_FAILED"
	ErrCodeAnalysisFailed       ErrorCode = "ANALYSIS_FAILED"
	ErrCodeAnalysisTimeout      ErrorCode = "ANALYSIS_TIMEOUT"
	ErrCodeAnalysisInFlight     ErrorCode = "ANALYSIS_IN_FLIGHT"
	ErrCodeGenerationFailed     ErrorCode = "GENERATION_FAILED"
	ErrCodeSaveFailed           ErrorCode = "SAVE_FAILED"
	ErrCodeCostLookupFailed     ErrorCode = "COST_LOOKUP_FAILED"
	ErrCodeStateFetchFailed     ErrorCode = "STATE_FETCH_FAILED"
	ErrCodeBatchPartialFailure  ErrorCode = "BATCH_PARTIAL_FAILURE"
	ErrCodeSessionNotFound      ErrorCode = "SESSION_NOT_FOUND"
)

// ==========================
// 2. Validation Errors
// ==========================

// ValidationError reports a locally detected invalid input. It names
// the offending field and, where applicable, the content type whose
// rules were violated. Validation errors are never sent over the
// network and are always recoverable by correcting input.
type ValidationError struct {
	Field       string `json:"field"`
	ContentType string `json:"content_type,omitempty"`
	Message     string `json:"message"`
}

func (e *ValidationError) Error() string {
	if e.ContentType != "" {
		return fmt.Sprintf("validation failed for %s: field %q %s", e.ContentType, e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: field %q %s", e.Field, e.Message)
}

// NewValidationError creates a validation error for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// NewContentValidationError creates a validation error scoped to a
// content type's preference rules.
func NewContentValidationError(contentType, field, message string) *ValidationError {
	return &ValidationError{ContentType: contentType, Field: field, Message: message}
}

// ==========================
// 3. Transport Errors
// ==========================

// TransportError wraps a failed remote call: network failure,
// non-success response, or malformed response body.
type TransportError struct {
	Operation  string    `json:"operation"`
	StatusCode int       `json:"status_code,omitempty"`
	Message    string    `json:"message"`
	Retryable  bool      `json:"retryable"`
	Timestamp  time.Time `json:"timestamp"`
	cause      error
}

func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s failed with status %d: %s", e.Operation, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s failed: %s", e.Operation, e.Message)
}

func (e *TransportError) Unwrap() error { return e.cause }

// NewTransportError wraps a low-level failure for the named operation.
func NewTransportError(operation string, cause error) *TransportError {
	msg := "request failed"
	if cause != nil {
		msg = cause.Error()
	}
	return &TransportError{
		Operation: operation,
		Message:   msg,
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewTransportStatusError records a non-success HTTP response.
func NewTransportStatusError(operation string, status int, body string) *TransportError {
	return &TransportError{
		Operation:  operation,
		StatusCode: status,
		Message:    body,
		Retryable:  status >= 500,
		Timestamp:  time.Now().UTC(),
	}
}

// ==========================
// 4. Guard Violations
// ==========================

// GuardViolation reports navigation to a step whose prerequisites are
// unmet. It is silently blocked at the session boundary; the UI may
// render an advisory toast but it never reaches the error banner.
type GuardViolation struct {
	TargetStep int    `json:"target_step"`
	Guard      string `json:"guard"`
}

func (e *GuardViolation) Error() string {
	return fmt.Sprintf("step %d unreachable: %s", e.TargetStep, e.Guard)
}

// NewGuardViolation creates a guard violation for the target step.
func NewGuardViolation(targetStep int, guard string) *GuardViolation {
	return &GuardViolation{TargetStep: targetStep, Guard: guard}
}

// ==========================
// 5. Partial Batch Failures
// ==========================

// BatchItemError carries the outcome of one failed item of a batch
// generation. Sibling items are unaffected.
type BatchItemError struct {
	ContentType string `json:"content_type"`
	Err         error  `json:"-"`
}

// PartialBatchFailure aggregates per-item failures from an all-settled
// batch. Successful items are reported alongside, never rolled back.
type PartialBatchFailure struct {
	Failed []BatchItemError `json:"failed"`
	Total  int              `json:"total"`
}

func (e *PartialBatchFailure) Error() string {
	return fmt.Sprintf("%d of %d generation requests failed", len(e.Failed), e.Total)
}

// ==========================
// 6. Classification Helpers
// ==========================

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsTransport reports whether err is (or wraps) a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsGuardViolation reports whether err is (or wraps) a GuardViolation.
func IsGuardViolation(err error) bool {
	var gv *GuardViolation
	return errors.As(err, &gv)
}

// IsRetryable reports whether the operation that produced err may be
// replayed with the same parameters.
func IsRetryable(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable
	}
	return false
}

// CodeOf extracts a stable code for metrics labels.
func CodeOf(err error) ErrorCode {
	switch {
	case IsValidation(err):
		return ErrCodeValidationFailed
	case IsGuardViolation(err):
		return ErrCodeGuardViolation
	case IsTransport(err):
		return transportCode(err)
	default:
		return "INTERNAL_ERROR"
	}
}

func transportCode(err error) ErrorCode {
	var te *TransportError
	if !errors.As(err, &te) {
		return "INTERNAL_ERROR"
	}
	switch te.Operation {
	case "createCampaign":
		return ErrCodeCampaignCreateFailed
	case "runAnalysis":
		return ErrCodeAnalysisFailed
	case "generateContent":
		return ErrCodeGenerationFailed
	case "saveProgress":
		return ErrCodeSaveFailed
	case "estimateCost":
		return ErrCodeCostLookupFailed
	case "getWorkflowState":
		return ErrCodeStateFetchFailed
	default:
		return "TRANSPORT_ERROR"
	}
}
