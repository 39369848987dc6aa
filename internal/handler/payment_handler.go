package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/DriveShare-Marketplace/service-rental/internal/application"
	"github.com/DriveShare-Marketplace/service-rental/internal/pkg/auth"
	"github.com/DriveShare-Marketplace/service-rental/internal/pkg/middleware"
	"github.com/DriveShare-Marketplace/service-rental/internal/pkg/response"
)

// signatureHeader carries the HMAC signature on provider webhooks.
const signatureHeader = "X-Payment-Signature"

// PaymentHandler handles HTTP requests for payment operations.
type PaymentHandler struct {
	service *application.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(service *application.PaymentService) *PaymentHandler {
	return &PaymentHandler{service: service}
}

// RegisterRoutes registers all payment routes on the given router group. The
// webhook endpoint authenticates by signature, not by JWT.
func (h *PaymentHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)

	payments := r.Group("/api/v1/bookings/:id/payment")
	payments.Use(authMW, middleware.RequireRole(auth.RoleRenter, auth.RoleAdmin))
	{
		payments.POST("", h.ProcessPayment)
		payments.POST("/confirm", h.ConfirmPayment)
	}

	r.POST("/api/v1/webhooks/payments", h.HandleWebhook)
}

// ProcessPayment handles POST /api/v1/bookings/:id/payment.
func (h *PaymentHandler) ProcessPayment(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid booking ID")
		return
	}

	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req application.ProcessPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.ProcessPayment(c.Request.Context(), bookingID, userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// ConfirmPayment handles POST /api/v1/bookings/:id/payment/confirm.
func (h *PaymentHandler) ConfirmPayment(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid booking ID")
		return
	}

	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	result, err := h.service.ConfirmPayment(c.Request.Context(), bookingID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// HandleWebhook handles POST /api/v1/webhooks/payments. The raw body is
// needed intact for signature verification.
func (h *PaymentHandler) HandleWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.BadRequest(c, "failed to read webhook body")
		return
	}

	signature := c.GetHeader(signatureHeader)

	if err := h.service.HandleWebhook(c.Request.Context(), payload, signature); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"received": true})
}
