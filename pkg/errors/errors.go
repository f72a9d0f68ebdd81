package errors

import (
	"errors"
	"fmt"
	"net/http"

	"claimgate/pkg/models"
)

var (
	ErrNotFound           = NewError("NOT_FOUND", "resource not found", http.StatusNotFound)
	ErrValidation         = NewError("VALIDATION_ERROR", "validation failed", http.StatusBadRequest)
	ErrInternal           = NewError("INTERNAL_ERROR", "internal server error", http.StatusInternalServerError)
	ErrConflict           = NewError("CONFLICT", "resource conflict", http.StatusConflict)
	ErrTimeout            = NewError("TIMEOUT", "operation timed out", http.StatusRequestTimeout)
	ErrServiceUnavailable = NewError("SERVICE_UNAVAILABLE", "service unavailable", http.StatusServiceUnavailable)

	// Exchange protocol taxonomy. Transport errors are retried up to the
	// policy bound; the other three are never retried.
	ErrTransport  = NewError("TRANSPORT_ERROR", "exchange transport failure", http.StatusBadGateway)
	ErrStructural = NewError("STRUCTURAL_ERROR", "response envelope shape invalid", http.StatusBadGateway)
	ErrBusiness   = NewError("BUSINESS_ERROR", "exchange reported operation failure", http.StatusUnprocessableEntity)
	ErrGuard      = NewError("GUARD_ERROR", "local precondition failed", http.StatusConflict)
)

// Transport failure classes carried in Details["class"].
const (
	TransportClassHTTPError    = "http_error"
	TransportClassNoResponse   = "no_response"
	TransportClassRequestError = "request_error"
)

const detailRecords = "error_records"

type RetryableError interface {
	error
	IsRetryable() bool
}

type FatalError interface {
	error
	IsFatal() bool
}

type Error struct {
	Code      string
	Message   string
	Status    int
	Details   map[string]interface{}
	Records   []models.ErrorRecord
	Cause     error
	retryable *bool
}

func NewError(code, message string, status int) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Status:  status,
		Details: make(map[string]interface{}),
	}
}

func (e *Error) Error() string {
	msg := e.Message

	if len(e.Details) > 0 {
		if detailMsg, ok := e.Details["message"].(string); ok && detailMsg != "" {
			msg = detailMsg
		}
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) IsRetryable() bool {
	if e.retryable != nil {
		return *e.retryable
	}
	switch e.Code {
	case ErrValidation.Code, ErrNotFound.Code, ErrConflict.Code,
		ErrStructural.Code, ErrBusiness.Code, ErrGuard.Code:
		return false
	}
	if e.Cause != nil {
		var retryableErr RetryableError
		if errors.As(e.Cause, &retryableErr) {
			return retryableErr.IsRetryable()
		}
		var fatalErr FatalError
		if errors.As(e.Cause, &fatalErr) {
			return !fatalErr.IsFatal()
		}
	}
	return true
}

func (e *Error) IsFatal() bool {
	return !e.IsRetryable()
}

func (e *Error) WithCause(cause error) *Error {
	err := *e
	err.Cause = cause
	return &err
}

func (e *Error) WithDetail(key string, value interface{}) *Error {
	err := *e
	details := make(map[string]interface{}, len(err.Details)+1)
	for k, v := range err.Details {
		details[k] = v
	}
	details[key] = value
	err.Details = details
	return &err
}

func (e *Error) WithMessage(msg string) *Error {
	return e.WithDetail("message", msg)
}

// WithRecords attaches the ordered ErrorRecord list. The list is preserved
// verbatim so callers can act on structured codes.
func (e *Error) WithRecords(records []models.ErrorRecord) *Error {
	err := *e
	err.Records = records
	return &err
}

func (e *Error) AsRetryable() *Error {
	err := *e
	retryable := true
	err.retryable = &retryable
	return &err
}

func (e *Error) AsFatal() *Error {
	err := *e
	retryable := false
	err.retryable = &retryable
	return &err
}

func Wrap(err error, appErr *Error) *Error {
	if err == nil {
		return nil
	}
	return appErr.WithCause(err)
}

// RecordsOf extracts the attached ErrorRecord list, or nil.
func RecordsOf(err error) []models.ErrorRecord {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Records
	}
	return nil
}

func is(err error, code string) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

func IsNotFound(err error) bool   { return is(err, ErrNotFound.Code) }
func IsValidation(err error) bool { return is(err, ErrValidation.Code) }
func IsConflict(err error) bool   { return is(err, ErrConflict.Code) }
func IsTransport(err error) bool  { return is(err, ErrTransport.Code) }
func IsStructural(err error) bool { return is(err, ErrStructural.Code) }
func IsBusiness(err error) bool   { return is(err, ErrBusiness.Code) }
func IsGuard(err error) bool      { return is(err, ErrGuard.Code) }

func ToHTTPStatus(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

func ToErrorResponse(err error) map[string]interface{} {
	var appErr *Error
	if !errors.As(err, &appErr) {
		appErr = ErrInternal.WithCause(err)
	}

	response := map[string]interface{}{
		"error":      appErr.Message,
		"error_code": appErr.Code,
	}

	if len(appErr.Details) > 0 {
		response["details"] = appErr.Details
	}

	if len(appErr.Records) > 0 {
		response[detailRecords] = appErr.Records
	}

	return response
}

// ErrorResponse documents the JSON error body in the API docs. Handlers
// build the actual body through ToErrorResponse.
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"error_code"`
	Details map[string]interface{} `json:"details,omitempty"`
	Records []models.ErrorRecord   `json:"error_records,omitempty"`
}
