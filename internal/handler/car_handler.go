package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/DriveShare-Marketplace/service-rental/internal/application"
	carDomain "github.com/DriveShare-Marketplace/service-rental/internal/domain/car"
	"github.com/DriveShare-Marketplace/service-rental/internal/pkg/auth"
	"github.com/DriveShare-Marketplace/service-rental/internal/pkg/middleware"
	"github.com/DriveShare-Marketplace/service-rental/internal/pkg/response"
)

// CarHandler handles HTTP requests for car listing operations.
type CarHandler struct {
	cars     *application.CarService
	bookings *application.BookingService
}

// NewCarHandler creates a new CarHandler.
func NewCarHandler(cars *application.CarService, bookings *application.BookingService) *CarHandler {
	return &CarHandler{cars: cars, bookings: bookings}
}

// RegisterRoutes registers all car routes on the given router group. Browsing
// and availability are public; management requires an owner account.
func (h *CarHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)

	cars := r.Group("/api/v1/cars")
	{
		cars.GET("", h.ListCars)
		cars.GET("/:id", h.GetCar)
		cars.GET("/:id/availability", h.CheckAvailability)
		cars.GET("/:id/ratings", h.GetRatings)
	}

	manage := r.Group("/api/v1/cars")
	manage.Use(authMW, middleware.RequireRole(auth.RoleOwner, auth.RoleAdmin))
	{
		manage.POST("", h.CreateCar)
		manage.PATCH("/:id", h.UpdateCar)
		manage.PUT("/:id/status", h.SetStatus)
		manage.PUT("/:id/images", h.ReplaceImages)
		manage.DELETE("/:id", h.DeleteCar)
	}

	mine := r.Group("/api/v1/my-cars")
	mine.Use(authMW, middleware.RequireRole(auth.RoleOwner, auth.RoleAdmin))
	{
		mine.GET("", h.GetOwnerCars)
	}
}

// ListCars handles GET /api/v1/cars.
func (h *CarHandler) ListCars(c *gin.Context) {
	page, limit := parsePagination(c)

	result, err := h.cars.ListCars(c.Request.Context(), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// GetCar handles GET /api/v1/cars/:id.
func (h *CarHandler) GetCar(c *gin.Context) {
	carID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid car ID")
		return
	}

	result, err := h.cars.GetCar(c.Request.Context(), carID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// CheckAvailability handles GET /api/v1/cars/:id/availability.
func (h *CarHandler) CheckAvailability(c *gin.Context) {
	carID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid car ID")
		return
	}

	start, end, ok := parseDateRange(c)
	if !ok {
		return
	}

	available, err := h.bookings.CheckAvailability(c.Request.Context(), carID, start, end)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{
		"car_id":    carID,
		"start":     start,
		"end":       end,
		"available": available,
	})
}

// GetRatings handles GET /api/v1/cars/:id/ratings.
func (h *CarHandler) GetRatings(c *gin.Context) {
	carID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid car ID")
		return
	}

	result, err := h.cars.GetRatingSummary(c.Request.Context(), carID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// CreateCar handles POST /api/v1/cars.
func (h *CarHandler) CreateCar(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req application.CreateCarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.cars.CreateCar(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// UpdateCar handles PATCH /api/v1/cars/:id.
func (h *CarHandler) UpdateCar(c *gin.Context) {
	carID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid car ID")
		return
	}

	userID, role, ok := callerIdentity(c)
	if !ok {
		return
	}

	var patch carDomain.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.cars.UpdateCar(c.Request.Context(), carID, userID, role, patch)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// SetStatus handles PUT /api/v1/cars/:id/status.
func (h *CarHandler) SetStatus(c *gin.Context) {
	carID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid car ID")
		return
	}

	userID, role, ok := callerIdentity(c)
	if !ok {
		return
	}

	var req application.UpdateCarStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.cars.SetStatus(c.Request.Context(), carID, userID, role, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// ReplaceImages handles PUT /api/v1/cars/:id/images.
func (h *CarHandler) ReplaceImages(c *gin.Context) {
	carID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid car ID")
		return
	}

	userID, role, ok := callerIdentity(c)
	if !ok {
		return
	}

	var req struct {
		Images [][]byte `json:"images" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.cars.ReplaceImages(c.Request.Context(), carID, userID, role, req.Images)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// DeleteCar handles DELETE /api/v1/cars/:id.
func (h *CarHandler) DeleteCar(c *gin.Context) {
	carID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid car ID")
		return
	}

	userID, role, ok := callerIdentity(c)
	if !ok {
		return
	}

	if err := h.cars.DeleteCar(c.Request.Context(), carID, userID, role); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"deleted": true})
}

// GetOwnerCars handles GET /api/v1/my-cars.
func (h *CarHandler) GetOwnerCars(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	page, limit := parsePagination(c)

	result, err := h.cars.GetOwnerCars(c.Request.Context(), userID, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}
