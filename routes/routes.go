package routes

import (
	"rental-service/controllers"
	"rental-service/middleware"

	"github.com/gin-gonic/gin"
)

func Register(r *gin.Engine, bc *controllers.BookingController, pc *controllers.PaymentController) {
	bookings := r.Group("/bookings")
	bookings.Use(middleware.AuthMiddleware())
	bookings.POST("", bc.CreateBooking)
	bookings.GET("/:id", bc.GetBooking)
	bookings.POST("/:id/cancel", bc.CancelBooking)
	bookings.POST("/:id/photos", bc.AttachPhoto)
	bookings.DELETE("/:id/photos", bc.RemovePhoto)

	payments := r.Group("/payments")
	payments.Use(middleware.AuthMiddleware())
	payments.POST("/create", pc.CreatePayment)
	payments.GET("/:id/status", pc.GetPaymentStatus)

	// Provider callback (no auth; authenticated by its signed token)
	r.POST("/payments/webhook", pc.Webhook)
}
