package payments

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/Kisakye5308/EduPay-Ledger-sub001/app/ledger"
	"github.com/Kisakye5308/EduPay-Ledger-sub001/app/models"
	"github.com/Kisakye5308/EduPay-Ledger-sub001/app/routes/auth"
)

// Money accepts a JSON amount as either a number or a decimal string and
// holds whole shillings. Fractional amounts are rejected rather than rounded.
type Money int64

// UnmarshalJSON implements json.Unmarshaler.
func (m *Money) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		return fmt.Errorf("amount is required")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("invalid amount %q", s)
	}
	if !d.Equal(d.Truncate(0)) {
		return fmt.Errorf("amount must be whole shillings, got %s", d)
	}

	*m = Money(d.IntPart())
	return nil
}

// RecordPaymentRequest is the request body for recording a payment.
type RecordPaymentRequest struct {
	StudentID        string                  `json:"student_id"`
	Amount           Money                   `json:"amount"`
	Channel          models.PaymentChannel   `json:"channel"`
	TransactionRef   string                  `json:"transaction_ref"`
	Notes            *string                 `json:"notes,omitempty"`
	AllocationMethod models.AllocationMethod `json:"allocation_method,omitempty"`
	SendNotification *bool                   `json:"send_notification,omitempty"`
}

// RecordPaymentAPI records one payment against a student's ledger.
func RecordPaymentAPI(c *fiber.Ctx, coord *ledger.Coordinator) error {
	var req RecordPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if req.StudentID == "" || req.TransactionRef == "" || req.Channel == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Missing required fields")
	}

	notify := true
	if req.SendNotification != nil {
		notify = *req.SendNotification
	}

	result, err := coord.RecordPayment(c.Context(), ledger.RecordPaymentInput{
		StudentID:        req.StudentID,
		Amount:           int64(req.Amount),
		Channel:          req.Channel,
		TransactionRef:   req.TransactionRef,
		Notes:            req.Notes,
		RecordedBy:       auth.UserID(c),
		SchoolID:         auth.SchoolID(c),
		Method:           req.AllocationMethod,
		SendNotification: notify,
	})
	if err != nil {
		return paymentError(c, err)
	}

	response := fiber.Map{
		"success":     true,
		"data":        result.Payment,
		"new_balance": result.NewBalance,
	}
	if result.CategoryAllocation != nil {
		response["category_allocation"] = result.CategoryAllocation
	}
	return c.Status(fiber.StatusCreated).JSON(response)
}

// GetPaymentAPI returns one payment with its allocations.
func GetPaymentAPI(c *fiber.Ctx, store ledger.Store) error {
	payment, err := store.GetPayment(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Payment not found")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch payment")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    payment,
	})
}

// GetStudentPaymentsAPI lists a student's payments, newest first.
func GetStudentPaymentsAPI(c *fiber.Ctx, store ledger.Store) error {
	payments, err := store.ListPaymentsForStudent(c.Context(), c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch payments")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    payments,
	})
}

// ReversePaymentRequest carries the reason for a reversal.
type ReversePaymentRequest struct {
	Reason string `json:"reason"`
}

// ReversePaymentAPI undoes a committed payment with a compensating
// adjustment.
func ReversePaymentAPI(c *fiber.Ctx, coord *ledger.Coordinator) error {
	var req ReversePaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if req.Reason == "" {
		return fiber.NewError(fiber.StatusBadRequest, "A reversal reason is required")
	}

	payment, err := coord.ReversePayment(c.Context(), c.Params("id"), auth.UserID(c), req.Reason)
	if err != nil {
		return paymentError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    payment,
		"message": "Payment reversed successfully",
	})
}

// paymentError maps coordinator errors onto the response envelope per the
// error taxonomy: validation problems are actionable 400s, conflicts are
// retryable 409s, missing aggregates are 404s.
func paymentError(c *fiber.Ctx, err error) error {
	var validation *ledger.ValidationError
	switch {
	case errors.As(err, &validation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   validation.Error(),
			"code":    string(validation.Code),
		})
	case errors.Is(err, ledger.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "Student ledger not found",
		})
	case errors.Is(err, ledger.ErrDuplicateTransaction):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	case errors.Is(err, ledger.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success": false,
			"error":   "The ledger is busy, please try again",
		})
	case errors.Is(err, ledger.ErrAlreadyReversed), errors.Is(err, ledger.ErrLedgerArchived):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	default:
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to record payment")
	}
}
