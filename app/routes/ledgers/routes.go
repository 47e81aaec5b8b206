package ledgers

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"github.com/Kisakye5308/EduPay-Ledger-sub001/app/ledger"
	"github.com/Kisakye5308/EduPay-Ledger-sub001/app/routes/auth"
)

// SetupLedgerRoutes sets up the ledger routes. The db handle is only used by
// the read-side reporting endpoints; every mutation goes through the
// coordinator.
func SetupLedgerRoutes(app *fiber.App, coord *ledger.Coordinator, store ledger.Store, db *sql.DB) {
	api := app.Group("/api/ledgers")
	api.Use(auth.Middleware)

	api.Post("/", func(c *fiber.Ctx) error {
		return CreateLedgerAPI(c, coord)
	})

	api.Post("/:id/adjust", func(c *fiber.Ctx) error {
		return AdjustFeesAPI(c, coord)
	})

	api.Post("/:id/archive", func(c *fiber.Ctx) error {
		return ArchiveLedgerAPI(c, coord)
	})

	if db != nil {
		api.Get("/stats", func(c *fiber.Ctx) error {
			return GetStatsAPI(c, db)
		})

		api.Get("/:id/audit", func(c *fiber.Ctx) error {
			return GetAuditTrailAPI(c, db)
		})
	}

	students := app.Group("/api/students")
	students.Use(auth.Middleware)

	students.Get("/:id/ledger", func(c *fiber.Ctx) error {
		return GetStudentLedgerAPI(c, store)
	})

	students.Get("/:id/categories", func(c *fiber.Ctx) error {
		return GetStudentCategoriesAPI(c, store)
	})
}
