package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"authorship/internal/failure"
)

// ErrorCode classifies an API failure.
type ErrorCode string

const (
	ErrorCodeInvalidRequest  ErrorCode = "INVALID_REQUEST"
	ErrorCodeInvalidJSON     ErrorCode = "INVALID_JSON"
	ErrorCodeRunNotFound     ErrorCode = "RUN_NOT_FOUND"
	ErrorCodeUnknownKind     ErrorCode = "UNKNOWN_ARTIFACT_KIND"
	ErrorCodeModelNotReady   ErrorCode = "MODEL_NOT_READY"
	ErrorCodeLedgerDisabled  ErrorCode = "LEDGER_DISABLED"
	ErrorCodeConfiguration   ErrorCode = "CONFIGURATION_ERROR"
	ErrorCodeInternalError   ErrorCode = "INTERNAL_ERROR"
	ErrorCodePredictFailed   ErrorCode = "PREDICTION_FAILED"
	ErrorCodeContractChanged ErrorCode = "CONTRACT_MISMATCH"
)

// APIError is the body of every non-2xx response.
type APIError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Hint      string    `json:"hint,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// SendError writes a standardized error response.
func SendError(c *gin.Context, status int, code ErrorCode, message string) {
	c.JSON(status, APIError{Code: code, Message: message, Timestamp: time.Now().UTC()})
}

// sendPipelineError maps pipeline error markers onto HTTP statuses.
func sendPipelineError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, ErrorCodeInternalError
	switch {
	case errors.Is(err, failure.ErrMissingArtifact):
		status, code = http.StatusConflict, ErrorCodeModelNotReady
	case errors.Is(err, failure.ErrContractMismatch):
		status, code = http.StatusConflict, ErrorCodeContractChanged
	case errors.Is(err, failure.ErrConfiguration):
		status, code = http.StatusBadRequest, ErrorCodeConfiguration
	case errors.Is(err, failure.ErrUnknownDocument):
		status, code = http.StatusUnprocessableEntity, ErrorCodePredictFailed
	}
	c.JSON(status, APIError{
		Code:      code,
		Message:   err.Error(),
		Hint:      failure.Hint(err),
		Timestamp: time.Now().UTC(),
	})
}
