// Package dto holds the payloads the command line prints in JSON mode.
package dto

import (
	"time"

	"webshop/internal/domain"
	apperrors "webshop/internal/errors"
)

const (
	StatusOK    = "ok"
	StatusError = "error"
)

const (
	CodeValidation  = "VALIDATION_ERROR"
	CodeNotFound    = "NOT_FOUND"
	CodeConflict    = "CONFLICT"
	CodePersistence = "PERSISTENCE_ERROR"
	CodeInternal    = "INTERNAL_ERROR"
)

type OperationResponse struct {
	TraceID      string         `json:"traceId"`
	Status       string         `json:"status"`
	Operation    string         `json:"operation"`
	Table        string         `json:"table"`
	RowsAffected *int64         `json:"rowsAffected,omitempty"`
	LastInsertID int64          `json:"lastInsertId,omitempty"`
	Rows         []*domain.Row  `json:"rows,omitempty"`
	Attempts     int            `json:"attempts,omitempty"`
	Error        *ErrorResponse `json:"error,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
}

type ErrorResponse struct {
	Code    string                       `json:"code"`
	Message string                       `json:"message"`
	Details []apperrors.ValidationDetail `json:"details,omitempty"`
}

// NewErrorResponse maps an application error to its wire code. Unknown
// errors keep their message hidden behind a generic one.
func NewErrorResponse(err error) *ErrorResponse {
	if ve, ok := apperrors.IsValidationError(err); ok {
		return &ErrorResponse{Code: CodeValidation, Message: ve.Message, Details: ve.Details}
	}
	if nfe, ok := apperrors.IsNotFoundError(err); ok {
		return &ErrorResponse{Code: CodeNotFound, Message: nfe.Message}
	}
	if ce, ok := apperrors.IsConflictError(err); ok {
		return &ErrorResponse{Code: CodeConflict, Message: ce.Message}
	}
	if pe, ok := apperrors.IsPersistenceError(err); ok {
		return &ErrorResponse{Code: CodePersistence, Message: pe.Message}
	}
	return &ErrorResponse{Code: CodeInternal, Message: "an unexpected error occurred"}
}

// NewFailure builds the response for a failed operation.
func NewFailure(traceID, operation, table string, err error) OperationResponse {
	return OperationResponse{
		TraceID:   traceID,
		Status:    StatusError,
		Operation: operation,
		Table:     table,
		Error:     NewErrorResponse(err),
		Timestamp: time.Now().UTC(),
	}
}
