package controllers

import (
	"errors"
	"net/http"

	"rental-service/gateway"
	"rental-service/middleware"
	"rental-service/models"
	"rental-service/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type PaymentController struct {
	Payments   *services.PaymentService
	Reconciler *services.WebhookReconciler
	Logger     *zap.Logger
}

type createPaymentRequest struct {
	BookingID   string `json:"booking_id" binding:"required,uuid"`
	PaymentType string `json:"payment_type" binding:"required,oneof=rental deposit"`
}

// CreatePayment handles POST /payments/create.
func (pc *PaymentController) CreatePayment(c *gin.Context) {
	var req createPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	kind := models.PaymentRental
	if req.PaymentType == "deposit" {
		kind = models.PaymentDepositHold
	}

	payment, err := pc.Payments.InitiatePayment(c.Request.Context(), middleware.GetUserID(c), uuid.MustParse(req.BookingID), kind)
	if err != nil {
		switch {
		case errors.Is(err, gateway.ErrUnavailable):
			// Authorization outcome unknown; the payment row stays PENDING
			// and the client polls status.
			c.JSON(http.StatusAccepted, gin.H{
				"payment_id": payment.ID,
				"status":     payment.Status,
				"message":    "payment pending, check status later",
			})
		case errors.Is(err, services.ErrPaymentNotAllowed):
			c.JSON(http.StatusConflict, gin.H{"error": "booking not in a payable state"})
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
		case errors.Is(err, services.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		default:
			pc.Logger.Error("payment initiation failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to initiate payment"})
		}
		return
	}

	resp := gin.H{
		"payment_id": payment.ID,
		"status":     payment.Status,
	}
	if payment.GatewayPaymentID != nil {
		resp["gateway_payment_id"] = *payment.GatewayPaymentID
	}
	if payment.RedirectURL != nil {
		resp["redirect_url"] = *payment.RedirectURL
	}
	c.JSON(http.StatusOK, resp)
}

// GetPaymentStatus handles GET /payments/:id/status, reconciling a PENDING
// payment against the gateway on read.
func (pc *PaymentController) GetPaymentStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment id"})
		return
	}

	payment, err := pc.Payments.GetStatus(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Payment not found"})
		case errors.Is(err, services.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		default:
			pc.Logger.Error("payment status lookup failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"payment_id": payment.ID,
		"booking_id": payment.BookingID,
		"kind":       payment.Kind,
		"status":     payment.Status,
		"amount":     payment.Amount,
	})
}

// Webhook handles POST /payments/webhook. Once signature and lookup succeed
// the response is always 200, including redeliveries — the provider-facing
// idempotency contract.
func (pc *PaymentController) Webhook(c *gin.Context) {
	var payload gateway.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	if err := pc.Reconciler.OnCallback(c.Request.Context(), payload); err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidSignature):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		case errors.Is(err, services.ErrUnknownPayment):
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown payment"})
		default:
			pc.Logger.Error("webhook processing failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "received"})
}
