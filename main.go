package main

import (
	"context"
	"log"
	"strings"

	"rental-service/config"
	"rental-service/controllers"
	"rental-service/database"
	"rental-service/events"
	"rental-service/gateway"
	"rental-service/kafka"
	"rental-service/repository"
	"rental-service/routes"
	"rental-service/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("[RentalService] failed to load config:", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatal("[RentalService] failed to connect to DB:", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("[RentalService] failed to migrate models:", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("[RentalService] failed to initialize logger:", err)
	}
	defer logger.Sync()

	bookingRepo := repository.NewGormBookingRepository(db)
	paymentRepo := repository.NewGormPaymentRepository(db)
	photoRepo := repository.NewGormPhotoCheckRepository(db)
	refundRepo := repository.NewGormDepositRefundRepository(db)
	damageRepo := repository.NewGormDamageRecordRepository(db)
	holdRepo := repository.NewGormReconciliationHoldRepository(db)

	gw := gateway.NewClient(cfg.GatewayBaseURL, cfg.GatewaySecret, cfg.GatewayTimeout)
	catalog := services.NewCatalogClient(cfg.CatalogServiceURL)

	var producer services.EventPublisher
	var kafkaProducer *kafka.BookingEventProducer
	if cfg.KafkaBrokers != "" {
		kafkaProducer = kafka.NewBookingEventProducer(strings.Split(cfg.KafkaBrokers, ","), cfg.KafkaTopic)
		defer kafkaProducer.Close()
		producer = kafkaProducer
	}

	bookingSvc := services.NewBookingService(bookingRepo, paymentRepo, catalog, gw, producer, logger)
	reconciler := services.NewWebhookReconciler(paymentRepo, holdRepo, bookingSvc, gw, logger)
	paymentSvc := services.NewPaymentService(paymentRepo, bookingSvc, gw, reconciler, logger)

	bus := events.NewBus()
	defer bus.Close()

	photoGate := services.NewPhotoGate(photoRepo, bookingSvc, bus, logger)
	settlement := services.NewSettlementService(
		refundRepo, damageRepo, paymentRepo, photoRepo,
		bookingSvc, services.NewRandomAssessor(), gw,
		services.DamageCostTable{
			Minor:    cfg.DamageMinorCost,
			Moderate: cfg.DamageModerateCost,
			Severe:   cfg.DamageSevereCost,
		},
		logger,
	)
	settlement.Start(context.Background(), bus)

	r := gin.New()
	r.Use(gin.Recovery())

	bc := &controllers.BookingController{
		Bookings: bookingSvc,
		Photos:   photoGate,
		Logger:   logger,
	}
	pc := &controllers.PaymentController{
		Payments:   paymentSvc,
		Reconciler: reconciler,
		Logger:     logger,
	}
	routes.Register(r, bc, pc)

	log.Println("[RentalService] running on port", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("[RentalService] server failed:", err)
	}
}
