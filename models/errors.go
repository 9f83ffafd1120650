package models

import "fmt"

// Error codes used in API responses and internal error handling.
const (
	ErrCodeSearchBackend = "SEARCH_BACKEND_FAILURE"
	ErrCodeFetch         = "FETCH_FAILED"
	ErrCodeValidation    = "VALIDATION_FAILED"
	ErrCodeExhausted     = "PIPELINE_EXHAUSTED"
	ErrCodeBrowserCrash  = "BROWSER_CRASH"
	ErrCodeTimeout       = "RESEARCH_TIMEOUT"
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeRateLimited   = "RATE_LIMITED"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeInternal      = "INTERNAL_ERROR"

	// Prose-generation error codes.
	ErrCodeLLMFailure     = "LLM_FAILURE"
	ErrCodeLLMAuthFailure = "LLM_AUTH_FAILURE"
	ErrCodeLLMRateLimited = "LLM_RATE_LIMITED"
)

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ResearchError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type ResearchError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *ResearchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ResearchError) Unwrap() error {
	return e.Err
}

// NewResearchError creates a new ResearchError.
func NewResearchError(code, message string, err error) *ResearchError {
	return &ResearchError{Code: code, Message: message, Err: err}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *ResearchError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}
