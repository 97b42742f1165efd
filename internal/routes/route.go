package routes

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/kwamina/staybay/internal/container"
	"github.com/kwamina/staybay/internal/handlers"
	"github.com/kwamina/staybay/internal/middleware"
	"github.com/kwamina/staybay/internal/models"
)

// SetupRoutes configures all routes with the dependency container
func SetupRoutes(container *container.Container) *gin.Engine {
	// Set Gin mode for production
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	// Add middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(container.Logger))
	r.Use(middleware.ErrorHandler(container.Logger))
	r.Use(gin.Recovery())

	// API version 1
	v1 := r.Group("/api/v1")
	{
		// Health check
		v1.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status":  "OK",
				"service": "staybay-api",
			})
		})

		// public routes
		v1.POST("/signup", handlers.CreateUser(container.UserService))
		v1.POST("/login", handlers.AuthenticateUser(container.UserService))
		v1.POST("/logout", handlers.Logout())

		// Availability is public: no login needed to ask whether dates are free
		v1.GET("/properties/:id/availability", handlers.CheckAvailability(container.BookingService))
	}

	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware(container.UserService, container.Logger))

	bookingRoutes := protected.Group("/bookings")
	{
		bookingRoutes.POST("/", handlers.CreateBooking(container.BookingService))
		bookingRoutes.GET("/owner", handlers.ListOwnerBookings(container.BookingService))
		bookingRoutes.GET("/client", handlers.ListClientBookings(container.BookingService))
		bookingRoutes.GET("/:id", handlers.GetBooking(container.BookingService))
		bookingRoutes.POST("/:id/confirm", handlers.TransitionBooking(container.BookingService, models.ActionConfirm))
		bookingRoutes.POST("/:id/cancel", handlers.TransitionBooking(container.BookingService, models.ActionCancel))
	}

	adminRoutes := protected.Group("/admin")
	{
		adminRoutes.GET("/bookings", handlers.AdminListBookings(container.BookingService))
		adminRoutes.GET("/bookings/stats", handlers.AdminBookingStats(container.BookingService))
	}

	return r
}
