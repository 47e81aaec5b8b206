package main

import (
	"context"
	"database/sql"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"

	"github.com/Kisakye5308/EduPay-Ledger-sub001/app/config"
	"github.com/Kisakye5308/EduPay-Ledger-sub001/app/database"
	"github.com/Kisakye5308/EduPay-Ledger-sub001/app/ledger"
	"github.com/Kisakye5308/EduPay-Ledger-sub001/app/routes/ledgers"
	"github.com/Kisakye5308/EduPay-Ledger-sub001/app/routes/payments"
	"github.com/Kisakye5308/EduPay-Ledger-sub001/app/services"
)

// customErrorHandler renders every unhandled error in the API envelope.
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"error":   err.Error(),
		"code":    code,
	})
}

func main() {
	cfg := config.Load()

	logger, err := cfg.NewLogger()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	var store ledger.Store
	var db *sql.DB
	if cfg.DatabaseURL != "" {
		db, err = cfg.OpenDB()
		if err != nil {
			logger.Fatal("failed to connect database", zap.Error(err))
		}
		defer db.Close()

		if err := database.RunMigrations(db); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
		store = database.NewLedgerStore(db)
		logger.Info("database connected")
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory store")
		store = ledger.NewMemoryStore()
	}

	var dispatcher ledger.Dispatcher = ledger.NopDispatcher{}
	if cfg.AMQPURL != "" {
		publisher, err := services.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Fatal("failed to connect AMQP", zap.Error(err))
		}
		defer publisher.Close()

		d := services.NewDispatcher(publisher, logger)
		defer d.Stop()
		dispatcher = d
		logger.Info("event dispatcher connected", zap.String("exchange", cfg.AMQPExchange))
	}

	coord := ledger.NewCoordinator(store, dispatcher, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	services.StartScheduler(ctx, store, logger)

	app := fiber.New(fiber.Config{
		AppName:      "fee-ledger",
		ErrorHandler: customErrorHandler,
	})
	app.Use(fiberlogger.New())
	app.Use(cors.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	payments.SetupPaymentRoutes(app, coord, store)
	ledgers.SetupLedgerRoutes(app, coord, store, db)

	logger.Info("listening", zap.String("port", cfg.Port))
	if err := app.Listen(":" + cfg.Port); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
