package payments

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Kisakye5308/EduPay-Ledger-sub001/app/ledger"
	"github.com/Kisakye5308/EduPay-Ledger-sub001/app/routes/auth"
)

// SetupPaymentRoutes sets up the payment routes.
func SetupPaymentRoutes(app *fiber.App, coord *ledger.Coordinator, store ledger.Store) {
	api := app.Group("/api/payments")
	api.Use(auth.Middleware)

	api.Post("/", func(c *fiber.Ctx) error {
		return RecordPaymentAPI(c, coord)
	})

	api.Get("/:id", func(c *fiber.Ctx) error {
		return GetPaymentAPI(c, store)
	})

	api.Post("/:id/reverse", func(c *fiber.Ctx) error {
		return ReversePaymentAPI(c, coord)
	})

	students := app.Group("/api/students")
	students.Use(auth.Middleware)

	students.Get("/:id/payments", func(c *fiber.Ctx) error {
		return GetStudentPaymentsAPI(c, store)
	})
}
