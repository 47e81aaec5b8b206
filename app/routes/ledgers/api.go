package ledgers

import (
	"database/sql"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Kisakye5308/EduPay-Ledger-sub001/app/database"
	"github.com/Kisakye5308/EduPay-Ledger-sub001/app/ledger"
	"github.com/Kisakye5308/EduPay-Ledger-sub001/app/models"
	"github.com/Kisakye5308/EduPay-Ledger-sub001/app/routes/auth"
)

// InstallmentInput is one installment of the fee schedule snapshot.
type InstallmentInput struct {
	Order     int       `json:"order"`
	Name      string    `json:"name"`
	AmountDue int64     `json:"amount_due"`
	Deadline  time.Time `json:"deadline"`
}

// CategoryInput is one fee category of the schedule snapshot.
type CategoryInput struct {
	Name      string `json:"name"`
	Priority  int    `json:"priority"`
	AmountDue int64  `json:"amount_due"`
}

// CreateLedgerRequest snapshots the fee schedule assigned to a student.
type CreateLedgerRequest struct {
	StudentID    string             `json:"student_id"`
	TermID       *string            `json:"term_id,omitempty"`
	Installments []InstallmentInput `json:"installments,omitempty"`
	Categories   []CategoryInput    `json:"categories,omitempty"`
}

// CreateLedgerAPI creates a student ledger from a fee schedule snapshot.
func CreateLedgerAPI(c *fiber.Ctx, coord *ledger.Coordinator) error {
	var req CreateLedgerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if req.StudentID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Missing required fields")
	}

	input := ledger.CreateLedgerInput{
		StudentID: req.StudentID,
		SchoolID:  auth.SchoolID(c),
		TermID:    req.TermID,
		ActorID:   auth.UserID(c),
	}
	for _, inst := range req.Installments {
		input.Installments = append(input.Installments, ledger.InstallmentSpec{
			Order:     inst.Order,
			Name:      inst.Name,
			AmountDue: inst.AmountDue,
			Deadline:  inst.Deadline,
		})
	}
	for _, cat := range req.Categories {
		input.Categories = append(input.Categories, ledger.CategorySpec{
			Name:      cat.Name,
			Priority:  cat.Priority,
			AmountDue: cat.AmountDue,
		})
	}

	l, err := coord.CreateLedger(c.Context(), input)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    l,
		"message": "Ledger created successfully",
	})
}

// GetStudentLedgerAPI returns the student's active ledger.
func GetStudentLedgerAPI(c *fiber.Ctx, store ledger.Store) error {
	l, err := store.GetActiveLedgerForStudent(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Ledger not found")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch ledger")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    l,
	})
}

// CategoryBreakdown is the reporting view of one fee category.
type CategoryBreakdown struct {
	ID         string                       `json:"id"`
	Name       string                       `json:"name"`
	Priority   int                          `json:"priority"`
	AmountDue  int64                        `json:"amount_due"`
	AmountPaid int64                        `json:"amount_paid"`
	Balance    int64                        `json:"balance"`
	Status     models.CategoryPaymentStatus `json:"status"`
}

// GetStudentCategoriesAPI returns the fee category breakdown for a student.
func GetStudentCategoriesAPI(c *fiber.Ctx, store ledger.Store) error {
	l, err := store.GetActiveLedgerForStudent(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Ledger not found")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch ledger")
	}

	breakdown := make([]CategoryBreakdown, 0, len(l.Categories))
	for _, cat := range l.Categories {
		breakdown = append(breakdown, CategoryBreakdown{
			ID:         cat.ID,
			Name:       cat.Name,
			Priority:   cat.Priority,
			AmountDue:  cat.AmountDue,
			AmountPaid: cat.AmountPaid,
			Balance:    cat.Balance(),
			Status:     cat.Status,
		})
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       breakdown,
		"student_id": l.StudentID,
	})
}

// AdjustFeesRequest changes a ledger's total fees (scholarship, discount,
// correction).
type AdjustFeesRequest struct {
	NewTotal int64  `json:"new_total"`
	Reason   string `json:"reason"`
}

// AdjustFeesAPI applies a fee adjustment to a ledger.
func AdjustFeesAPI(c *fiber.Ctx, coord *ledger.Coordinator) error {
	var req AdjustFeesRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if req.Reason == "" {
		return fiber.NewError(fiber.StatusBadRequest, "An adjustment reason is required")
	}

	l, err := coord.AdjustFees(c.Context(), c.Params("id"), req.NewTotal, auth.UserID(c), req.Reason)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Ledger not found")
		}
		if errors.Is(err, ledger.ErrConflict) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"success": false,
				"error":   "The ledger is busy, please try again",
			})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    l,
		"message": "Fees adjusted successfully",
	})
}

// ArchiveLedgerAPI archives a ledger at term rollover.
func ArchiveLedgerAPI(c *fiber.Ctx, coord *ledger.Coordinator) error {
	err := coord.ArchiveLedger(c.Context(), c.Params("id"), auth.UserID(c))
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Ledger not found")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to archive ledger")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Ledger archived successfully",
	})
}

// GetStatsAPI returns collection statistics for the caller's school.
func GetStatsAPI(c *fiber.Ctx, db *sql.DB) error {
	stats, err := database.GetCollectionStats(c.Context(), db, auth.SchoolID(c))
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch stats")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    stats,
	})
}

// GetAuditTrailAPI returns the audit trail for a ledger.
func GetAuditTrailAPI(c *fiber.Ctx, db *sql.DB) error {
	entries, err := database.GetAuditTrail(c.Context(), db, c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch audit trail")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    entries,
	})
}
