package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"sort"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// ErrorCategory defines the type of error for proper handling
type ErrorCategory string

const (
	CategoryValidation    ErrorCategory = "validation"
	CategoryNotFound      ErrorCategory = "not_found"
	CategoryWorkflow      ErrorCategory = "workflow"
	CategoryRateLimit     ErrorCategory = "rate_limit"
	CategoryInternal      ErrorCategory = "internal"
	CategoryConfiguration ErrorCategory = "configuration"
)

// Code identifies a specific failure the caller can act on.
type Code string

const (
	CodeInvalidCategory        Code = "InvalidCategory"
	CodeInvalidScoreRange      Code = "InvalidScoreRange"
	CodeInvalidBoostValue      Code = "InvalidBoostValue"
	CodeInvalidTopFeatureOrder Code = "InvalidTopFeatureOrder"
	CodeInvalidBadge           Code = "InvalidBadge"
	CodeInvalidRegion          Code = "InvalidRegion"
	CodeInvalidApplication     Code = "InvalidApplication"
	CodeInvalidRequest         Code = "InvalidRequest"
	CodeUnsupportedMediaType   Code = "UnsupportedMediaType"
	CodeFeatureNotFound        Code = "FeatureNotFound"
	CodeAssessmentNotFound     Code = "AssessmentNotFound"
	CodeSnapshotNotFound       Code = "SnapshotNotFound"
	CodeNoScoredFeatures       Code = "NoScoredFeatures"
	CodeUnnamedFeatures        Code = "UnnamedFeatures"
	CodeAssessmentFinalized    Code = "AssessmentFinalized"
	CodeRateLimited            Code = "RateLimited"
	CodeTimeout                Code = "Timeout"
	CodeInternal               Code = "Internal"
	CodeConfiguration          Code = "Configuration"
)

// AppError wraps an errbuilder error with the domain code and transport context
type AppError struct {
	*errbuilder.ErrBuilder
	Code       Code              `json:"code"`
	Category   ErrorCategory     `json:"category"`
	HTTPStatus int               `json:"-"`
	Fields     map[string]string `json:"fields,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
	StackTrace string            `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.ErrBuilder.Msg)
}

// Unwrap returns the underlying cause
func (e *AppError) Unwrap() error {
	return e.ErrBuilder.Unwrap()
}

// Message returns the human readable message without the code prefix.
func (e *AppError) Message() string {
	return e.ErrBuilder.Msg
}

// Response is the JSON body rendered for a failed request.
type Response struct {
	Code     Code              `json:"code"`
	Category ErrorCategory     `json:"category"`
	Message  string            `json:"message"`
	Fields   map[string]string `json:"fields,omitempty"`
}

// Response builds the wire representation of the error.
func (e *AppError) Response() Response {
	return Response{
		Code:     e.Code,
		Category: e.Category,
		Message:  e.Message(),
		Fields:   e.Fields,
	}
}

func newAppError(code Code, category ErrorCategory, httpStatus int, builder *errbuilder.ErrBuilder, fields map[string]string) *AppError {
	if len(fields) > 0 {
		errorMap := errbuilder.ErrorMap{}
		for key, value := range fields {
			errorMap.Set(key, errors.New(value))
		}
		builder = builder.WithDetails(errbuilder.NewErrDetails(errorMap))
	}

	return &AppError{
		ErrBuilder: builder,
		Code:       code,
		Category:   category,
		HTTPStatus: httpStatus,
		Fields:     fields,
		Timestamp:  time.Now(),
	}
}

// NewValidationError creates an input validation error. Fields name the offending inputs.
func NewValidationError(code Code, message string, fields map[string]string) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(message)

	return newAppError(code, CategoryValidation, http.StatusBadRequest, builder, fields)
}

// NewUnsupportedMediaTypeError rejects a request body that is not JSON
func NewUnsupportedMediaTypeError(contentType string) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg("request body must be application/json")

	return newAppError(CodeUnsupportedMediaType, CategoryValidation, http.StatusUnsupportedMediaType, builder,
		map[string]string{"content_type": contentType})
}

// NewNotFoundError creates an error for a missing feature, assessment or snapshot
func NewNotFoundError(code Code, resource, id string) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeNotFound).
		WithMsg(fmt.Sprintf("%s %q not found", resource, id))

	return newAppError(code, CategoryNotFound, http.StatusNotFound, builder, map[string]string{"id": id})
}

// NewWorkflowError creates an error for a blocked state transition. The aggregate is left unchanged.
func NewWorkflowError(code Code, message string, fields map[string]string) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg(message)

	status := http.StatusConflict
	switch code {
	case CodeNoScoredFeatures, CodeUnnamedFeatures:
		status = http.StatusUnprocessableEntity
	}

	return newAppError(code, CategoryWorkflow, status, builder, fields)
}

// NewRateLimitError creates a rate limit error
func NewRateLimitError(retryAfter time.Duration) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeResourceExhausted).
		WithMsg("Rate limit exceeded")

	return newAppError(CodeRateLimited, CategoryRateLimit, http.StatusTooManyRequests, builder,
		map[string]string{"retry_after": retryAfter.Round(time.Second).String()})
}

// NewTimeoutError reports a request that ran past its deadline
func NewTimeoutError(cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeDeadlineExceeded).
		WithMsg("Request timed out").
		WithCause(cause)

	return newAppError(CodeTimeout, CategoryInternal, http.StatusServiceUnavailable, builder, nil)
}

// NewInternalError creates an internal server error
func NewInternalError(message string, cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg(message)

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	appErr := newAppError(CodeInternal, CategoryInternal, http.StatusInternalServerError, builder, nil)

	if gin.Mode() == gin.DebugMode || gin.Mode() == gin.TestMode {
		appErr.StackTrace = captureStackTrace()
	}

	return appErr
}

// NewStorageError reports a failed persistence call. A call that ran past the request
// deadline is a Timeout rather than an internal failure.
func NewStorageError(message string, cause error) *AppError {
	if errors.Is(cause, context.DeadlineExceeded) {
		return NewTimeoutError(cause)
	}
	return NewInternalError(message, cause)
}

// NewConfigurationError creates a configuration error
func NewConfigurationError(message string, cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg(message)

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	return newAppError(CodeConfiguration, CategoryConfiguration, http.StatusInternalServerError, builder, nil)
}

func captureStackTrace() string {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// HasCode reports whether err is an AppError carrying code.
func HasCode(err error, code Code) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// GetCode extracts the code of an AppError.
func GetCode(err error) (Code, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code, true
	}
	return "", false
}

// ToAppError converts any error to an AppError
func ToAppError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		fields := make(map[string]string, len(validationErrs))
		for _, fe := range validationErrs {
			fields[fe.Field()] = fe.Tag()
		}
		return NewValidationError(CodeInvalidRequest, "Request failed validation", fields)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError(err)
	}

	if errors.Is(err, context.Canceled) {
		return NewInternalError("Request cancelled", err)
	}

	return NewInternalError("An unexpected error occurred", err)
}

// ErrorHandler is a Gin middleware that renders the last error attached to the context
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		appErr := ToAppError(c.Errors.Last().Err)
		LogError(c, appErr)
		c.JSON(appErr.HTTPStatus, appErr.Response())
	}
}

// RecoveryHandler provides panic recovery with structured error responses
func RecoveryHandler() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		appErr := NewInternalError("Internal server error", fmt.Errorf("panic: %v", recovered))
		appErr.StackTrace = captureStackTrace()

		LogError(c, appErr)
		c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.Response())
	})
}

// LogError logs an error with a level chosen by its category
func LogError(c *gin.Context, err *AppError) {
	logEntry := slog.With(
		"error_category", err.Category,
		"error_code", err.Code,
		"http_status", err.HTTPStatus,
		"ip", c.ClientIP(),
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"request_id", c.GetHeader("X-Request-ID"),
	)

	switch err.Category {
	case CategoryValidation, CategoryNotFound, CategoryWorkflow, CategoryRateLimit:
		if len(err.Fields) > 0 {
			logEntry.Warn(err.Message(), "fields", sortedFields(err.Fields))
		} else {
			logEntry.Warn(err.Message())
		}
	default:
		if cause := err.Unwrap(); cause != nil {
			logEntry.Error(err.Message(), "cause", cause)
		} else {
			logEntry.Error(err.Message())
		}
	}

	if err.StackTrace != "" && (gin.Mode() == gin.DebugMode || gin.Mode() == gin.TestMode) {
		logEntry.Debug("stack_trace", "trace", err.StackTrace)
	}
}

func sortedFields(fields map[string]string) []string {
	out := make([]string, 0, len(fields))
	for key, value := range fields {
		out = append(out, key+"="+value)
	}
	sort.Strings(out)
	return out
}

// SafeClose closes a resource and logs any error
func SafeClose(closer interface{ Close() error }, resourceName string) {
	if closer == nil {
		return
	}

	if err := closer.Close(); err != nil {
		slog.Warn("Failed to close resource",
			"resource", resourceName,
			"error", err)
	}
}
