package controllers

import (
	"errors"
	"net/http"
	"time"

	"rental-service/middleware"
	"rental-service/models"
	"rental-service/pricing"
	"rental-service/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type BookingController struct {
	Bookings *services.BookingService
	Photos   *services.PhotoGate
	Logger   *zap.Logger
}

type createBookingRequest struct {
	TrailerID  string   `json:"trailer_id" binding:"required,uuid"`
	StartTime  string   `json:"start_time" binding:"required"`
	EndTime    string   `json:"end_time" binding:"required"`
	RentalType string   `json:"rental_type" binding:"required,oneof=HOURLY DAILY"`
	AddOns     []string `json:"add_ons"`
}

// CreateBooking handles POST /bookings.
func (bc *BookingController) CreateBooking(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_time must be RFC3339"})
		return
	}
	end, err := time.Parse(time.RFC3339, req.EndTime)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end_time must be RFC3339"})
		return
	}

	booking, err := bc.Bookings.CreateBooking(c.Request.Context(), middleware.GetUserID(c), &services.CreateBookingRequest{
		TrailerID:  uuid.MustParse(req.TrailerID),
		StartTime:  start,
		EndTime:    end,
		RentalType: models.RentalType(req.RentalType),
		AddOns:     req.AddOns,
	})
	if err != nil {
		switch {
		case errors.Is(err, pricing.ErrInvalidWindow), errors.Is(err, pricing.ErrUnknownRentalType):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrSlotUnavailable):
			c.JSON(http.StatusConflict, gin.H{"error": "SlotUnavailable"})
		default:
			bc.Logger.Error("booking creation failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create booking"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"booking_id":     booking.ID,
		"status":         booking.Status,
		"total_amount":   booking.TotalAmount,
		"deposit_amount": booking.DepositAmount,
	})
}

// GetBooking handles GET /bookings/:id.
func (bc *BookingController) GetBooking(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}

	booking, err := bc.Bookings.GetBooking(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		respondBookingError(c, bc.Logger, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// CancelBooking handles POST /bookings/:id/cancel.
func (bc *BookingController) CancelBooking(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}

	booking, err := bc.Bookings.Cancel(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		if errors.Is(err, services.ErrNotCancellable) {
			c.JSON(http.StatusConflict, gin.H{"error": "booking can no longer be cancelled"})
			return
		}
		respondBookingError(c, bc.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking_id": booking.ID, "status": booking.Status})
}

type attachPhotoRequest struct {
	Phase    string `json:"phase" binding:"required,oneof=CHECK_IN CHECK_OUT"`
	Side     string `json:"side" binding:"required,oneof=FRONT REAR LEFT RIGHT"`
	PhotoRef string `json:"photo_ref" binding:"required"`
}

// AttachPhoto handles POST /bookings/:id/photos. The body carries an opaque
// storage ref; upload transport lives outside this service.
func (bc *BookingController) AttachPhoto(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}

	var req attachPhotoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := bc.Bookings.GetBooking(c.Request.Context(), middleware.GetUserID(c), id); err != nil {
		respondBookingError(c, bc.Logger, err)
		return
	}

	check, err := bc.Photos.Attach(c.Request.Context(), id, models.Phase(req.Phase), models.Side(req.Side), req.PhotoRef)
	if err != nil {
		if errors.Is(err, services.ErrBookingTerminal) {
			c.JSON(http.StatusConflict, gin.H{"error": "booking already settled"})
			return
		}
		bc.Logger.Error("photo attach failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to attach photo"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"phase": check.Phase, "status": check.Status})
}

type removePhotoRequest struct {
	Phase string `json:"phase" binding:"required,oneof=CHECK_IN CHECK_OUT"`
	Side  string `json:"side" binding:"required,oneof=FRONT REAR LEFT RIGHT"`
}

// RemovePhoto handles DELETE /bookings/:id/photos.
func (bc *BookingController) RemovePhoto(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}

	var req removePhotoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := bc.Bookings.GetBooking(c.Request.Context(), middleware.GetUserID(c), id); err != nil {
		respondBookingError(c, bc.Logger, err)
		return
	}

	check, err := bc.Photos.Remove(c.Request.Context(), id, models.Phase(req.Phase), models.Side(req.Side))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no photo check for phase"})
			return
		}
		bc.Logger.Error("photo remove failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove photo"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"phase": check.Phase, "status": check.Status})
}

func respondBookingError(c *gin.Context, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	default:
		logger.Error("booking lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}
