package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/DriveShare-Marketplace/service-rental/internal/pkg/domain"
)

// Envelope is the standard API response body.
type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Code    string      `json:"code,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	// ConflictingBooking is set on booking date-overlap errors so the UI
	// can show what is blocking the requested range.
	ConflictingBooking interface{} `json:"conflicting_booking,omitempty"`
}

// Success writes a 200 response with the given data.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

// Created writes a 201 response with the given data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Data: data})
}

// BadRequest writes a 400 validation response.
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Envelope{
		Success: false,
		Message: message,
		Code:    domain.CodeValidation,
	})
}

// Paginated writes a 200 response with pagination metadata.
func Paginated(c *gin.Context, items interface{}, total int64, page, limit int) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    items,
		"meta": gin.H{
			"total": total,
			"page":  page,
			"limit": limit,
		},
	})
}

// Error maps an error to its HTTP representation. Operational AppErrors keep
// their code and status; anything else is surfaced as a generic 500.
func Error(c *gin.Context, err error) {
	if appErr, ok := domain.AsAppError(err); ok {
		env := Envelope{
			Success: false,
			Message: appErr.Message,
			Code:    appErr.Code,
		}
		if appErr.Code == domain.CodeBookingConflict {
			env.ConflictingBooking = appErr.Details
		}
		c.JSON(appErr.HTTPStatus, env)
		return
	}

	c.JSON(http.StatusInternalServerError, Envelope{
		Success: false,
		Message: "internal server error",
		Code:    "INTERNAL_ERROR",
	})
}
