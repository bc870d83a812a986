package apperrors

import (
	"fmt"
	"net/http"
)

// Error codes surfaced to clients. Every failure kind is distinguishable
// by code and HTTP status; none is fatal to the process.
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeNotFound          = "RESOURCE_NOT_FOUND"
	CodeConflict          = "CONFLICT"
	CodeInsufficientStock = "INSUFFICIENT_STOCK"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeInternal          = "INTERNAL_ERROR"
)

// AppError carries an error code and HTTP status alongside the message.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Wrap attaches an underlying cause.
func (e *AppError) Wrap(err error) *AppError {
	e.Err = err
	return e
}

func New(code, message string, httpStatus int) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: httpStatus}
}

// Validation: malformed or out-of-range input.
func Validation(message string) *AppError {
	return New(CodeValidation, message, http.StatusBadRequest)
}

func Validationf(format string, args ...any) *AppError {
	return Validation(fmt.Sprintf(format, args...))
}

// NotFound: the referenced id does not exist.
func NotFound(resource string, id uint) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s %d not found", resource, id), http.StatusNotFound)
}

// Conflict: the operation violates a referential or state precondition.
func Conflict(message string) *AppError {
	return New(CodeConflict, message, http.StatusConflict)
}

// InsufficientStock: the usage would drive a quantity negative.
func InsufficientStock(supplyID uint, requested, available int) *AppError {
	return New(CodeInsufficientStock,
		fmt.Sprintf("supply %d has %d in stock, cannot use %d", supplyID, available, requested),
		http.StatusConflict)
}

// InvalidTransition: illegal request-status transition.
func InvalidTransition(from, to string) *AppError {
	return New(CodeInvalidTransition,
		fmt.Sprintf("cannot transition request from %q to %q", from, to),
		http.StatusConflict)
}

// Internal: unexpected failure; the cause is logged, not exposed.
func Internal(message string, err error) *AppError {
	return New(CodeInternal, message, http.StatusInternalServerError).Wrap(err)
}
