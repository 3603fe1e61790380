package http

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"lendflow-backend/internal/domain/application"
	applicationUC "lendflow-backend/internal/usecase/application"
)

type createApplicationRequest struct {
	BorrowerID string `json:"borrower_id" validate:"required,hex32"`
	ProductID  string `json:"product_id" validate:"required"`
	Amount     string `json:"amount" validate:"required,dec2"`
	Term       int    `json:"term" validate:"required,gte=1"`
}

type transitionRequest struct {
	To     string `json:"to" validate:"required"`
	Reason string `json:"reason"`
}

// actorID is the authenticated caller, carried in the same header the
// idempotency layer validates.
func actorID(c echo.Context) string {
	return strings.TrimSpace(c.Request().Header.Get("Ax-User-Id"))
}

func (h *Handler) CreateApplication(c echo.Context) error {
	var req createApplicationRequest
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

	dto, err := h.applications.Create(c.Request().Context(), applicationUC.CreateInput{
		BorrowerID: req.BorrowerID,
		ProductID:  req.ProductID,
		Amount:     amount,
		Term:       req.Term,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *Handler) TransitionApplication(c echo.Context) error {
	var req transitionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation failed", Details: ToFieldErrors(err)})
	}

	dto, err := h.applications.Transition(
		c.Request().Context(),
		c.Param("application_id"),
		application.Status(strings.ToUpper(req.To)),
		actorID(c),
		req.Reason,
	)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}
