package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kwamina/staybay/internal/helpers"
	"github.com/kwamina/staybay/internal/models"
	"github.com/kwamina/staybay/internal/services"
)

// statusFor maps the engine's error taxonomy onto HTTP statuses so callers
// can tell a fixable request from a permission problem.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, models.ErrPolicy):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// actorFrom pulls the authenticated actor out of the context set by
// AuthMiddleware.
func actorFrom(c *gin.Context) (*helpers.EnhancedClaims, uuid.UUID, bool) {
	userClaims, exists := c.Get("user")
	if !exists {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse("unauthorized"))
		return nil, uuid.Nil, false
	}

	claims, ok := userClaims.(*helpers.EnhancedClaims)
	if !ok {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse("invalid user claims"))
		return nil, uuid.Nil, false
	}

	actorID, err := uuid.Parse(claims.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse("invalid user ID in token"))
		return nil, uuid.Nil, false
	}

	return claims, actorID, true
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}

func CreateBooking(b *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, clientID, ok := actorFrom(c)
		if !ok {
			return
		}

		var input models.CreateBookingInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse(err.Error()))
			return
		}

		booking, err := b.CreateBooking(c.Request.Context(), clientID, &input)
		if err != nil {
			c.JSON(statusFor(err), models.ErrorResponse(err.Error()))
			return
		}

		c.JSON(http.StatusCreated, models.SuccessResponse(booking, "Booking created successfully"))
	}
}

func TransitionBooking(b *services.BookingService, action models.BookingAction) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, actorID, ok := actorFrom(c)
		if !ok {
			return
		}

		bookingID, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse("invalid booking ID format"))
			return
		}

		booking, err := b.Transition(c.Request.Context(), bookingID, actorID, action)
		if err != nil {
			c.JSON(statusFor(err), models.ErrorResponse(err.Error()))
			return
		}

		c.JSON(http.StatusOK, models.SuccessResponse(booking, "Booking "+string(booking.Status)))
	}
}

// CheckAvailability is public: anyone may ask whether a property is free
// for a date range.
func CheckAvailability(b *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		propertyID, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse("invalid property ID format"))
			return
		}

		checkIn, err := parseDate(c.Query("check_in"))
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse("invalid check_in date"))
			return
		}
		checkOut, err := parseDate(c.Query("check_out"))
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse("invalid check_out date"))
			return
		}

		available, err := b.CheckAvailability(c.Request.Context(), propertyID, checkIn, checkOut)
		if err != nil {
			c.JSON(statusFor(err), models.ErrorResponse(err.Error()))
			return
		}

		c.JSON(http.StatusOK, models.SuccessResponse(gin.H{"available": available}, ""))
	}
}

func GetBooking(b *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, actorID, ok := actorFrom(c)
		if !ok {
			return
		}

		bookingID, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse("invalid booking ID format"))
			return
		}

		booking, err := b.GetDetails(c.Request.Context(), bookingID, actorID, claims.IsAdmin())
		if err != nil {
			c.JSON(statusFor(err), models.ErrorResponse(err.Error()))
			return
		}

		c.JSON(http.StatusOK, models.SuccessResponse(booking, ""))
	}
}

func ListOwnerBookings(b *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, actorID, ok := actorFrom(c)
		if !ok {
			return
		}

		bookings, err := b.ListForOwner(c.Request.Context(), actorID)
		if err != nil {
			c.JSON(statusFor(err), models.ErrorResponse(err.Error()))
			return
		}

		c.JSON(http.StatusOK, models.SuccessResponse(bookings, ""))
	}
}

func ListClientBookings(b *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, actorID, ok := actorFrom(c)
		if !ok {
			return
		}

		bookings, err := b.ListForClient(c.Request.Context(), actorID)
		if err != nil {
			c.JSON(statusFor(err), models.ErrorResponse(err.Error()))
			return
		}

		c.JSON(http.StatusOK, models.SuccessResponse(bookings, ""))
	}
}

func AdminListBookings(b *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, _, ok := actorFrom(c)
		if !ok {
			return
		}
		if !claims.IsAdmin() {
			c.JSON(http.StatusForbidden, models.ErrorResponse("admin access required"))
			return
		}

		var statusFilter *models.BookingStatus
		if raw := c.Query("status"); raw != "" {
			status := models.BookingStatus(raw)
			statusFilter = &status
		}

		bookings, err := b.AdminListAll(c.Request.Context(), statusFilter)
		if err != nil {
			c.JSON(statusFor(err), models.ErrorResponse(err.Error()))
			return
		}

		c.JSON(http.StatusOK, models.SuccessResponse(bookings, ""))
	}
}

func AdminBookingStats(b *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, _, ok := actorFrom(c)
		if !ok {
			return
		}
		if !claims.IsAdmin() {
			c.JSON(http.StatusForbidden, models.ErrorResponse("admin access required"))
			return
		}

		stats, err := b.AdminStats(c.Request.Context())
		if err != nil {
			c.JSON(statusFor(err), models.ErrorResponse(err.Error()))
			return
		}

		c.JSON(http.StatusOK, models.SuccessResponse(stats, ""))
	}
}
