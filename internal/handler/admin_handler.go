package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/DriveShare-Marketplace/service-rental/internal/application"
	carDomain "github.com/DriveShare-Marketplace/service-rental/internal/domain/car"
	"github.com/DriveShare-Marketplace/service-rental/internal/pkg/auth"
	"github.com/DriveShare-Marketplace/service-rental/internal/pkg/middleware"
	"github.com/DriveShare-Marketplace/service-rental/internal/pkg/response"
)

// AdminHandler handles the admin surface: account approval, listing
// moderation, platform-wide booking views and offline payment settlement.
type AdminHandler struct {
	users    *application.UserService
	cars     *application.CarService
	bookings *application.BookingService
	payments *application.PaymentService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(
	users *application.UserService,
	cars *application.CarService,
	bookings *application.BookingService,
	payments *application.PaymentService,
) *AdminHandler {
	return &AdminHandler{users: users, cars: cars, bookings: bookings, payments: payments}
}

// RegisterRoutes registers all admin routes on the given router group.
func (h *AdminHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	admin := r.Group("/api/v1/admin")
	admin.Use(middleware.AuthMiddleware(jwtManager), middleware.RequireRole(auth.RoleAdmin))
	{
		admin.GET("/users/pending", h.ListPendingUsers)
		admin.PUT("/users/:id/approve", h.ApproveUser)
		admin.PUT("/users/:id/revoke", h.RevokeUser)

		admin.GET("/cars", h.ListCars)
		admin.PUT("/cars/:id/approve", h.ApproveCar)

		admin.GET("/bookings", h.ListBookings)
		admin.GET("/bookings/stats", h.GetBookingStats)
		admin.PUT("/bookings/:id/payment/settle", h.SettlePayment)
	}
}

// ListPendingUsers handles GET /api/v1/admin/users/pending.
func (h *AdminHandler) ListPendingUsers(c *gin.Context) {
	page, limit := parsePagination(c)

	result, err := h.users.ListPendingUsers(c.Request.Context(), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// ApproveUser handles PUT /api/v1/admin/users/:id/approve.
func (h *AdminHandler) ApproveUser(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid user ID")
		return
	}

	result, err := h.users.ApproveUser(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// RevokeUser handles PUT /api/v1/admin/users/:id/revoke.
func (h *AdminHandler) RevokeUser(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid user ID")
		return
	}

	result, err := h.users.RevokeUser(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// ListCars handles GET /api/v1/admin/cars with an optional status filter.
func (h *AdminHandler) ListCars(c *gin.Context) {
	page, limit := parsePagination(c)

	var status carDomain.Status
	if s := c.Query("status"); s != "" {
		parsed, err := carDomain.ParseStatus(s)
		if err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		status = parsed
	}

	result, err := h.cars.ListCarsByStatus(c.Request.Context(), status, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// ApproveCar handles PUT /api/v1/admin/cars/:id/approve.
func (h *AdminHandler) ApproveCar(c *gin.Context) {
	carID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid car ID")
		return
	}

	result, err := h.cars.ApproveCar(c.Request.Context(), carID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// ListBookings handles GET /api/v1/admin/bookings.
func (h *AdminHandler) ListBookings(c *gin.Context) {
	page, limit := parsePagination(c)

	result, err := h.bookings.ListAllBookings(c.Request.Context(), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// GetBookingStats handles GET /api/v1/admin/bookings/stats.
func (h *AdminHandler) GetBookingStats(c *gin.Context) {
	result, err := h.bookings.GetBookingStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// SettlePayment handles PUT /api/v1/admin/bookings/:id/payment/settle for
// bank transfer, wallet and cash payments verified out of band.
func (h *AdminHandler) SettlePayment(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid booking ID")
		return
	}

	var req struct {
		TransactionID string `json:"transaction_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.payments.SettleOfflinePayment(c.Request.Context(), bookingID, req.TransactionID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}
