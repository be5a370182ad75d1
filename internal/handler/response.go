// Package handler holds the shared HTTP response envelope used by all
// resource handlers.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vidaplena/clinic-api/pkg/apperror"
)

// Success writes the standard success envelope.
func Success(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"status": "success", "data": data})
}

// BadRequest writes a 400 with the given message.
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": message})
}

var statusByCode = map[apperror.Code]int{
	apperror.CodeValidation:           http.StatusBadRequest,
	apperror.CodeNotFound:             http.StatusNotFound,
	apperror.CodeConflict:             http.StatusConflict,
	apperror.CodeNotAvailable:         http.StatusUnprocessableEntity,
	apperror.CodeInvalidState:         http.StatusUnprocessableEntity,
	apperror.CodeInsufficientSessions: http.StatusUnprocessableEntity,
	apperror.CodeAlreadyRefunded:      http.StatusConflict,
	apperror.CodeInternal:             http.StatusInternalServerError,
}

// Error maps an application error to its HTTP status and writes the error
// envelope. Unclassified errors become 500s with a generic message.
func Error(c *gin.Context, err error) {
	code := apperror.CodeOf(err)
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}

	message := err.Error()
	if code == apperror.CodeInternal {
		message = "internal server error"
	}

	c.JSON(status, gin.H{"status": "error", "code": code, "message": message})
}
