package http

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"lendflow-backend/internal/domain/payment"
	paymentUC "lendflow-backend/internal/usecase/payment"
)

type createPaymentRequest struct {
	IdempotencyKey string `json:"idempotency_key" validate:"required"`
	Amount         string `json:"amount" validate:"required,dec2"`
	Currency       string `json:"currency"`
	Method         string `json:"method" validate:"required"`
	LoanID         string `json:"loan_id"`
}

func (h *Handler) CreatePayment(c echo.Context) error {
	var req createPaymentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation failed", Details: ToFieldErrors(err)})
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "validation failed", Details: []FieldError{{Field: "amount", Message: "must be a decimal number"}},
		})
	}

	dto, err := h.payments.Create(c.Request().Context(), paymentUC.CreateInput{
		UserID:         actorID(c),
		LoanID:         req.LoanID,
		Amount:         amount,
		Currency:       strings.ToUpper(req.Currency),
		Method:         payment.Method(strings.ToUpper(req.Method)),
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		return writeError(c, err)
	}
	// A replayed idempotency key returns the original resource, not an error.
	if dto.Duplicate {
		return c.JSON(http.StatusOK, dto)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *Handler) GetPayment(c echo.Context) error {
	dto, err := h.payments.Get(c.Request().Context(), c.Param("payment_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}
